package domain

import (
	"fmt"
	"time"
)

const (
	ColumnOrderDate   = "Order Date"
	ColumnShipDate    = "Ship Date"
	ColumnSales       = "Sales"
	ColumnProfit      = "Profit"
	ColumnDiscount    = "Discount"
	ColumnCategory    = "Category"
	ColumnSubCategory = "Sub-Category"
	ColumnRegion      = "Region"
	ColumnProduct     = "Product Name"
)

// RequiredColumns must be present in every uploaded dataset.
var RequiredColumns = []string{
	ColumnSales,
	ColumnProfit,
	ColumnDiscount,
	ColumnCategory,
	ColumnSubCategory,
	ColumnRegion,
	ColumnProduct,
}

// Period is a calendar month with the day discarded.
type Period struct {
	Year  int
	Month time.Month
}

func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) Before(other Period) bool {
	if p.Year != other.Year {
		return p.Year < other.Year
	}
	return p.Month < other.Month
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// Record is a single sales transaction.
type Record struct {
	OrderDate   time.Time
	ShipDate    time.Time
	Sales       float64
	Profit      float64
	Discount    float64
	Category    string
	SubCategory string
	Region      string
	ProductName string

	// Derived from OrderDate.
	Month Period
	Year  int

	// Line is the position of the row in the source file, header included.
	Line int
	// Fields holds the row as read, aligned with Table.Columns.
	Fields []string
}

// Table is the in-memory record table built from one upload.
type Table struct {
	Columns []string
	Records []Record
}

func (t *Table) Has(column string) bool {
	return t.Index(column) >= 0
}

func (t *Table) Index(column string) int {
	for i, c := range t.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

func (t *Table) Len() int {
	return len(t.Records)
}
