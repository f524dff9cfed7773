package api

import "time"

type MonthlyTotal struct {
	Month  string  `json:"month"`
	Sales  float64 `json:"sales"`
	Profit float64 `json:"profit"`
}

type GroupTotal struct {
	Key    string   `json:"key"`
	Sales  *float64 `json:"sales,omitempty"`
	Profit *float64 `json:"profit,omitempty"`
}

type DiscountTotal struct {
	Discount float64 `json:"discount"`
	Sales    float64 `json:"sales"`
	Profit   float64 `json:"profit"`
}

type SegmentPoint struct {
	Category string  `json:"category"`
	Sales    float64 `json:"sales"`
	Profit   float64 `json:"profit"`
}

type Aggregations struct {
	Monthly       []MonthlyTotal  `json:"monthly"`
	Categories    []GroupTotal    `json:"categories"`
	Regions       []GroupTotal    `json:"regions"`
	TopProducts   []GroupTotal    `json:"top_products"`
	SubCategories []GroupTotal    `json:"sub_categories"`
	Discounts     []DiscountTotal `json:"discounts"`
	Segments      []SegmentPoint  `json:"segments"`
}

type Insights struct {
	TotalSales   float64  `json:"total_sales"`
	TotalProfit  float64  `json:"total_profit"`
	BestCategory string   `json:"best_category"`
	BestRegion   string   `json:"best_region"`
	TopProduct   string   `json:"top_product"`
	Lines        []string `json:"lines"`
}

// AnalysisResponse previews a cleaned dataset and its aggregations.
type AnalysisResponse struct {
	RowsRead     int                 `json:"rows_read"`
	RowsDropped  int                 `json:"rows_dropped"`
	Rows         int                 `json:"rows"`
	Columns      []string            `json:"columns"`
	Preview      []map[string]string `json:"preview"`
	Aggregations Aggregations        `json:"aggregations"`
	// Nil when the dataset has nothing to rank.
	Insights *Insights `json:"insights,omitempty"`
}

type ReportResponse struct {
	ID           string    `json:"id"`
	FileName     string    `json:"file_name"`
	DownloadURL  string    `json:"download_url"`
	Pages        int       `json:"pages"`
	GeneratedAt  time.Time `json:"generated_at"`
	Insights     Insights  `json:"insights"`
	PublishedURL string    `json:"published_url,omitempty"`
}
