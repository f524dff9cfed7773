package adapters

import (
	"fmt"
	"math"
	"time"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/report"
)

const currencyUSD = "USD"

// MapAnalysisDomainToReport lays the aggregations out as a text report with
// one section per chart. The insights section is left out when insights is nil.
func MapAnalysisDomainToReport(a *domain.Analysis, insights *domain.Insights) *domain.Report {
	aggs := a.Aggregations
	res := &domain.Report{
		Title:    report.Title,
		Period:   orderPeriod(a.Table),
		Currency: currencyUSD,
	}
	for _, c := range aggs.Categories {
		res.TotalAmount += c.Sales
	}

	if insights != nil {
		res.Sections = append(res.Sections, insightsSection(*insights))
	}
	res.Sections = append(res.Sections,
		monthlySection(aggs.Monthly),
		groupSection("Sales and Profit by Category", aggs.Categories, true, true),
		groupSection("Profit by Region", aggs.Regions, false, true),
		groupSection("Top 10 Best-Selling Products", aggs.TopProducts, true, false),
		shareSection(aggs.SubCategories),
		discountSection(aggs.Discounts),
		segmentSection(aggs.Segments),
	)
	return res
}

func orderPeriod(t *domain.Table) domain.TimePeriod {
	var p domain.TimePeriod
	for _, r := range t.Records {
		if r.OrderDate.IsZero() {
			continue
		}
		if p.Start.IsZero() || r.OrderDate.Before(p.Start) {
			p.Start = r.OrderDate
		}
		if r.OrderDate.After(p.End) {
			p.End = r.OrderDate
		}
	}
	if !p.Start.IsZero() {
		p.Duration = int(p.End.Sub(p.Start)/(24*time.Hour)) + 1
	}
	return p
}

func insightsSection(in domain.Insights) domain.ReportSection {
	return domain.ReportSection{
		Title: "Key Insights",
		Summary: map[string]interface{}{
			"Total Sales":            report.FormatCurrency(in.TotalSales),
			"Total Profit":           report.FormatCurrency(in.TotalProfit),
			"Best-Selling Category":  in.BestCategory,
			"Most Profitable Region": in.BestRegion,
			"Top-Selling Product":    in.TopProduct,
		},
	}
}

func monthlySection(rows []domain.MonthlyTotal) domain.ReportSection {
	s := domain.ReportSection{
		Title:   "Total Sales and Profit Over Time",
		Summary: map[string]interface{}{"Months": len(rows)},
	}
	for _, m := range rows {
		s.Details = append(s.Details, domain.ReportDetail{
			Name:        m.Month.String(),
			Value:       report.FormatCurrency(m.Sales),
			Unit:        currencyUSD,
			Description: "profit " + report.FormatCurrency(m.Profit),
		})
	}
	return s
}

func groupSection(title string, groups []domain.GroupTotal, sales, profit bool) domain.ReportSection {
	s := domain.ReportSection{
		Title:   title,
		Summary: map[string]interface{}{"Groups": len(groups)},
	}
	for _, g := range groups {
		d := domain.ReportDetail{Name: displayKey(g.Key), Unit: currencyUSD}
		switch {
		case sales && profit:
			d.Value = report.FormatCurrency(g.Sales)
			d.Description = "profit " + report.FormatCurrency(g.Profit)
		case sales:
			d.Value = report.FormatCurrency(g.Sales)
			d.Description = "sales"
		default:
			d.Value = report.FormatCurrency(g.Profit)
			d.Description = "profit"
		}
		s.Details = append(s.Details, d)
	}
	return s
}

func shareSection(groups []domain.GroupTotal) domain.ReportSection {
	total := 0.0
	for _, g := range groups {
		total += g.Sales
	}
	s := domain.ReportSection{
		Title:   "Sales Distribution by Sub-Category",
		Summary: map[string]interface{}{"Sub-Categories": len(groups)},
	}
	for _, g := range groups {
		share := 0.0
		if total != 0 {
			share = g.Sales / total * 100
		}
		s.Details = append(s.Details, domain.ReportDetail{
			Name:        displayKey(g.Key),
			Value:       report.FormatCurrency(g.Sales),
			Unit:        currencyUSD,
			Description: fmt.Sprintf("%.1f%% of sales", share),
		})
	}
	return s
}

func discountSection(rows []domain.DiscountTotal) domain.ReportSection {
	s := domain.ReportSection{
		Title:   "Discount vs Sales and Profit",
		Summary: map[string]interface{}{"Discount Levels": len(rows)},
	}
	for _, d := range rows {
		s.Details = append(s.Details, domain.ReportDetail{
			Name:        fmt.Sprintf("%g%%", math.Round(d.Discount*10000)/100),
			Value:       report.FormatCurrency(d.Sales),
			Unit:        currencyUSD,
			Description: "profit " + report.FormatCurrency(d.Profit),
		})
	}
	return s
}

func segmentSection(points []domain.SegmentPoint) domain.ReportSection {
	type bucket struct {
		count         int
		sales, profit float64
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, p := range points {
		b, ok := buckets[p.Category]
		if !ok {
			b = &bucket{}
			buckets[p.Category] = b
			order = append(order, p.Category)
		}
		b.count++
		b.sales += p.Sales
		b.profit += p.Profit
	}

	s := domain.ReportSection{
		Title:   "Customer Segmentation: Sales vs Profit",
		Summary: map[string]interface{}{"Records": len(points)},
	}
	for _, c := range order {
		b := buckets[c]
		margin := 0.0
		if b.sales != 0 {
			margin = b.profit / b.sales * 100
		}
		s.Details = append(s.Details, domain.ReportDetail{
			Name:        displayKey(c),
			Value:       b.count,
			Unit:        "records",
			Description: fmt.Sprintf("margin %.1f%%", margin),
		})
	}
	return s
}

func displayKey(k string) string {
	if k == "" {
		return "(blank)"
	}
	return k
}
