package adapters

import (
	"github.com/de-tools/sales-atlas/pkg/models/api"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/report"
)

const previewRows = 5

func MapInsightsDomainToApi(in domain.Insights) api.Insights {
	return api.Insights{
		TotalSales:   in.TotalSales,
		TotalProfit:  in.TotalProfit,
		BestCategory: in.BestCategory,
		BestRegion:   in.BestRegion,
		TopProduct:   in.TopProduct,
		Lines:        report.InsightLines(in),
	}
}

// MapGroupTotalsDomainToApi copies groups, keeping only the requested metrics.
func MapGroupTotalsDomainToApi(groups []domain.GroupTotal, sales, profit bool) []api.GroupTotal {
	res := make([]api.GroupTotal, 0, len(groups))
	for _, g := range groups {
		item := api.GroupTotal{Key: g.Key}
		if sales {
			v := g.Sales
			item.Sales = &v
		}
		if profit {
			v := g.Profit
			item.Profit = &v
		}
		res = append(res, item)
	}
	return res
}

func MapAggregationsDomainToApi(a *domain.Aggregations) api.Aggregations {
	res := api.Aggregations{
		Monthly:       make([]api.MonthlyTotal, 0, len(a.Monthly)),
		Categories:    MapGroupTotalsDomainToApi(a.Categories, true, true),
		Regions:       MapGroupTotalsDomainToApi(a.Regions, false, true),
		TopProducts:   MapGroupTotalsDomainToApi(a.TopProducts, true, false),
		SubCategories: MapGroupTotalsDomainToApi(a.SubCategories, true, false),
		Discounts:     make([]api.DiscountTotal, 0, len(a.Discounts)),
		Segments:      make([]api.SegmentPoint, 0, len(a.Segments)),
	}
	for _, m := range a.Monthly {
		res.Monthly = append(res.Monthly, api.MonthlyTotal{
			Month:  m.Month.String(),
			Sales:  m.Sales,
			Profit: m.Profit,
		})
	}
	for _, d := range a.Discounts {
		res.Discounts = append(res.Discounts, api.DiscountTotal{
			Discount: d.Discount,
			Sales:    d.Sales,
			Profit:   d.Profit,
		})
	}
	for _, s := range a.Segments {
		res.Segments = append(res.Segments, api.SegmentPoint{
			Category: s.Category,
			Sales:    s.Sales,
			Profit:   s.Profit,
		})
	}
	return res
}

// MapRecordPreview returns the first rows of t keyed by column name. Parsed
// dates are shown in ISO form.
func MapRecordPreview(t *domain.Table) []map[string]string {
	n := min(previewRows, t.Len())
	rows := make([]map[string]string, 0, n)
	for _, rec := range t.Records[:n] {
		row := make(map[string]string, len(t.Columns))
		for i, col := range t.Columns {
			if i < len(rec.Fields) {
				row[col] = rec.Fields[i]
			}
		}
		if !rec.OrderDate.IsZero() {
			row[domain.ColumnOrderDate] = rec.OrderDate.Format("2006-01-02")
		}
		if !rec.ShipDate.IsZero() {
			row[domain.ColumnShipDate] = rec.ShipDate.Format("2006-01-02")
		}
		rows = append(rows, row)
	}
	return rows
}

// MapAnalysisDomainToApi builds the preview response. insights may be nil.
func MapAnalysisDomainToApi(a *domain.Analysis, insights *domain.Insights) api.AnalysisResponse {
	res := api.AnalysisResponse{
		RowsRead:     a.RowsRead,
		RowsDropped:  a.RowsDropped,
		Rows:         a.Table.Len(),
		Columns:      a.Table.Columns,
		Preview:      MapRecordPreview(a.Table),
		Aggregations: MapAggregationsDomainToApi(a.Aggregations),
	}
	if insights != nil {
		in := MapInsightsDomainToApi(*insights)
		res.Insights = &in
	}
	return res
}

func MapDocumentDomainToApi(id, downloadURL string, doc *domain.Document) api.ReportResponse {
	return api.ReportResponse{
		ID:          id,
		FileName:    doc.FileName,
		DownloadURL: downloadURL,
		Pages:       doc.Pages,
		GeneratedAt: doc.GeneratedAt,
		Insights:    MapInsightsDomainToApi(doc.Insights),
	}
}
