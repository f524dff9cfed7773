// Package report turns aggregation results into the downloadable PDF summary.
package report

import (
	"fmt"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
)

// ComputeInsights derives the headline figures from already computed
// aggregations. Totals come from the category partition, which covers every
// record. When more than one group shares the maximum the first one in result
// order wins.
func ComputeInsights(aggs *domain.Aggregations) (domain.Insights, error) {
	if aggs == nil {
		return domain.Insights{}, fmt.Errorf("%w: no aggregations", domain.ErrEmptyResult)
	}

	category, err := maxBy(aggs.Categories, "sales by category", func(g domain.GroupTotal) float64 { return g.Sales })
	if err != nil {
		return domain.Insights{}, err
	}
	region, err := maxBy(aggs.Regions, "profit by region", func(g domain.GroupTotal) float64 { return g.Profit })
	if err != nil {
		return domain.Insights{}, err
	}
	product, err := maxBy(aggs.TopProducts, "top products", func(g domain.GroupTotal) float64 { return g.Sales })
	if err != nil {
		return domain.Insights{}, err
	}

	insights := domain.Insights{
		BestCategory: category.Key,
		BestRegion:   region.Key,
		TopProduct:   product.Key,
	}
	for _, c := range aggs.Categories {
		insights.TotalSales += c.Sales
		insights.TotalProfit += c.Profit
	}
	return insights, nil
}

func maxBy(groups []domain.GroupTotal, name string, metric func(domain.GroupTotal) float64) (domain.GroupTotal, error) {
	if len(groups) == 0 {
		return domain.GroupTotal{}, fmt.Errorf("%w: %s has no rows", domain.ErrEmptyResult, name)
	}
	best := groups[0]
	for _, g := range groups[1:] {
		if metric(g) > metric(best) {
			best = g
		}
	}
	return best, nil
}

// InsightLines renders the five numbered lines printed under "Key Insights".
func InsightLines(in domain.Insights) []string {
	return []string{
		"1. Total Sales: " + FormatCurrency(in.TotalSales),
		"2. Total Profit: " + FormatCurrency(in.TotalProfit),
		"3. Best-Selling Category: " + in.BestCategory,
		"4. Most Profitable Region: " + in.BestRegion,
		"5. Top-Selling Product: " + in.TopProduct,
	}
}
