package analysis

import (
	"cmp"
	"context"
	"slices"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/rs/zerolog"
)

// DefaultTopProducts is the number of best-selling products kept.
const DefaultTopProducts = 10

// Aggregator computes the seven reductions over a cleaned, derived table.
// Implementations must not fail on an empty table.
type Aggregator interface {
	Aggregate(ctx context.Context, table *domain.Table) (*domain.Aggregations, error)
}

type memoryAggregator struct {
	topN int
}

// NewMemoryAggregator returns an Aggregator that groups records in process.
func NewMemoryAggregator(topN int) Aggregator {
	if topN <= 0 {
		topN = DefaultTopProducts
	}
	return &memoryAggregator{topN: topN}
}

func (a *memoryAggregator) Aggregate(ctx context.Context, table *domain.Table) (*domain.Aggregations, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records := table.Records

	aggs := &domain.Aggregations{
		Monthly:       ByMonth(records),
		Categories:    ByCategory(records),
		Regions:       ByRegion(records),
		TopProducts:   TopProducts(records, a.topN),
		SubCategories: BySubCategory(records),
		Discounts:     ByDiscount(records),
		Segments:      Segments(records),
	}

	zerolog.Ctx(ctx).Debug().
		Str("engine", "memory").
		Int("records", len(records)).
		Int("months", len(aggs.Monthly)).
		Int("categories", len(aggs.Categories)).
		Msg("aggregations computed")

	return aggs, nil
}

// ByMonth sums sales and profit per order month in calendar order. Records
// without an order date are left out.
func ByMonth(records []domain.Record) []domain.MonthlyTotal {
	totals := make(map[domain.Period]*domain.MonthlyTotal)
	for _, r := range records {
		if r.Month.IsZero() {
			continue
		}
		t, ok := totals[r.Month]
		if !ok {
			t = &domain.MonthlyTotal{Month: r.Month}
			totals[r.Month] = t
		}
		t.Sales += r.Sales
		t.Profit += r.Profit
	}

	out := make([]domain.MonthlyTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.MonthlyTotal) int {
		switch {
		case a.Month.Before(b.Month):
			return -1
		case b.Month.Before(a.Month):
			return 1
		}
		return 0
	})
	return out
}

func ByCategory(records []domain.Record) []domain.GroupTotal {
	return groupBy(records, func(r domain.Record) string { return r.Category }, true, true)
}

func ByRegion(records []domain.Record) []domain.GroupTotal {
	return groupBy(records, func(r domain.Record) string { return r.Region }, false, true)
}

func BySubCategory(records []domain.Record) []domain.GroupTotal {
	return groupBy(records, func(r domain.Record) string { return r.SubCategory }, true, false)
}

// ByProduct sums sales per product name, sorted by name.
func ByProduct(records []domain.Record) []domain.GroupTotal {
	return groupBy(records, func(r domain.Record) string { return r.ProductName }, true, false)
}

// TopProducts keeps the n products with the largest sales, descending. Ties
// are broken by product name so the result is stable across runs.
func TopProducts(records []domain.Record, n int) []domain.GroupTotal {
	products := ByProduct(records)
	slices.SortStableFunc(products, func(a, b domain.GroupTotal) int {
		return cmp.Compare(b.Sales, a.Sales)
	})
	if len(products) > n {
		products = products[:n]
	}
	return products
}

// ByDiscount sums sales and profit per discount level, ascending.
func ByDiscount(records []domain.Record) []domain.DiscountTotal {
	totals := make(map[float64]*domain.DiscountTotal)
	for _, r := range records {
		t, ok := totals[r.Discount]
		if !ok {
			t = &domain.DiscountTotal{Discount: r.Discount}
			totals[r.Discount] = t
		}
		t.Sales += r.Sales
		t.Profit += r.Profit
	}

	out := make([]domain.DiscountTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.DiscountTotal) int {
		return cmp.Compare(a.Discount, b.Discount)
	})
	return out
}

// Segments is the raw per-record sales/profit view, in table order.
func Segments(records []domain.Record) []domain.SegmentPoint {
	out := make([]domain.SegmentPoint, 0, len(records))
	for _, r := range records {
		out = append(out, domain.SegmentPoint{
			Category: r.Category,
			Sales:    r.Sales,
			Profit:   r.Profit,
		})
	}
	return out
}

// groupBy sums the selected metrics per key. Empty keys form their own group
// so that every reduction stays a partition of the table.
func groupBy(
	records []domain.Record,
	key func(domain.Record) string,
	sales, profit bool,
) []domain.GroupTotal {
	totals := make(map[string]*domain.GroupTotal)
	for _, r := range records {
		k := key(r)
		t, ok := totals[k]
		if !ok {
			t = &domain.GroupTotal{Key: k}
			totals[k] = t
		}
		if sales {
			t.Sales += r.Sales
		}
		if profit {
			t.Profit += r.Profit
		}
	}

	out := make([]domain.GroupTotal, 0, len(totals))
	for _, t := range totals {
		out = append(out, *t)
	}
	slices.SortFunc(out, func(a, b domain.GroupTotal) int {
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}
