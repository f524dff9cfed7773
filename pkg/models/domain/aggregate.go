package domain

// MonthlyTotal is one row of the by-month reduction.
type MonthlyTotal struct {
	Month  Period
	Sales  float64
	Profit float64
}

// GroupTotal is one row of a reduction keyed by a categorical dimension.
// Reductions that only sum one metric leave the other at zero.
type GroupTotal struct {
	Key    string
	Sales  float64
	Profit float64
}

type DiscountTotal struct {
	Discount float64
	Sales    float64
	Profit   float64
}

// SegmentPoint is a raw per-record sales/profit pair.
type SegmentPoint struct {
	Category string
	Sales    float64
	Profit   float64
}

// Aggregations holds the seven reductions computed from a cleaned table.
type Aggregations struct {
	Monthly       []MonthlyTotal
	Categories    []GroupTotal
	Regions       []GroupTotal
	TopProducts   []GroupTotal
	SubCategories []GroupTotal
	Discounts     []DiscountTotal
	Segments      []SegmentPoint
}

// Analysis is the outcome of ingesting and aggregating one dataset.
type Analysis struct {
	Table        *Table
	RowsRead     int
	RowsDropped  int
	Aggregations *Aggregations
}
