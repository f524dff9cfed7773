// Package charts renders aggregation results as static chart images.
package charts

import (
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Scratch image names, one per chart, in report order.
const (
	MonthlySalesProfit   = "monthly_sales_profit"
	CategorySalesProfit  = "category_sales_profit"
	RegionProfit         = "region_profit"
	TopProducts          = "top_products"
	SubCategorySales     = "subcategory_sales"
	DiscountSalesProfit  = "discount_sales_profit"
	CustomerSegmentation = "customer_segmentation"
)

const (
	barWidth        = vg.Length(18)
	minBubbleRadius = vg.Length(2)
	maxBubbleRadius = vg.Length(14)
)

// Chart is one rendered view of an aggregation result.
type Chart struct {
	Name  string
	Title string
	Plot  *plot.Plot
}

// Render writes the chart as a PNG image of the given size.
func (c Chart) Render(w io.Writer, width, height vg.Length) error {
	wt, err := c.Plot.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("render chart %s: %w", c.Name, err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("write chart %s: %w", c.Name, err)
	}
	return nil
}

// Build maps every aggregation result to its chart. The result always holds
// seven charts in report order; empty results yield empty axes.
func Build(aggs *domain.Aggregations) ([]Chart, error) {
	builders := []struct {
		name  string
		title string
		build func(*plot.Plot, *domain.Aggregations) error
	}{
		{MonthlySalesProfit, "Total Sales and Profit Over Time", monthly},
		{CategorySalesProfit, "Sales and Profit by Category", categories},
		{RegionProfit, "Profit by Region", regions},
		{TopProducts, "Top 10 Best-Selling Products", topProducts},
		{SubCategorySales, "Sales Distribution by Sub-Category", subCategories},
		{DiscountSalesProfit, "Discount vs Sales and Profit", discounts},
		{CustomerSegmentation, "Customer Segmentation: Sales vs Profit", segments},
	}

	out := make([]Chart, 0, len(builders))
	for _, b := range builders {
		p := plot.New()
		p.Title.Text = b.title
		if err := b.build(p, aggs); err != nil {
			return nil, fmt.Errorf("build chart %s: %w", b.name, err)
		}
		out = append(out, Chart{Name: b.name, Title: b.title, Plot: p})
	}
	return out, nil
}

func monthly(p *plot.Plot, aggs *domain.Aggregations) error {
	p.X.Label.Text = "Month"
	p.Y.Label.Text = "Amount"
	p.Add(plotter.NewGrid())
	if len(aggs.Monthly) == 0 {
		return nil
	}

	labels := make([]string, len(aggs.Monthly))
	sales := make(plotter.XYs, len(aggs.Monthly))
	profit := make(plotter.XYs, len(aggs.Monthly))
	for i, m := range aggs.Monthly {
		labels[i] = m.Month.String()
		sales[i] = plotter.XY{X: float64(i), Y: m.Sales}
		profit[i] = plotter.XY{X: float64(i), Y: m.Profit}
	}

	if err := plotutil.AddLinePoints(p, "Sales", sales, "Profit", profit); err != nil {
		return err
	}
	p.NominalX(labels...)
	rotateTickLabels(p)
	p.Legend.Top = true
	return nil
}

func categories(p *plot.Plot, aggs *domain.Aggregations) error {
	p.X.Label.Text = "Category"
	p.Y.Label.Text = "Amount"
	if len(aggs.Categories) == 0 {
		return nil
	}

	keys := make([]string, len(aggs.Categories))
	sales := make(plotter.Values, len(aggs.Categories))
	profit := make(plotter.Values, len(aggs.Categories))
	for i, c := range aggs.Categories {
		keys[i] = c.Key
		sales[i] = c.Sales
		profit[i] = c.Profit
	}

	salesBars, err := plotter.NewBarChart(sales, barWidth)
	if err != nil {
		return err
	}
	salesBars.Color = plotutil.Color(0)
	salesBars.LineStyle.Width = 0
	salesBars.Offset = -barWidth / 2

	profitBars, err := plotter.NewBarChart(profit, barWidth)
	if err != nil {
		return err
	}
	profitBars.Color = plotutil.Color(1)
	profitBars.LineStyle.Width = 0
	profitBars.Offset = barWidth / 2

	p.Add(salesBars, profitBars)
	p.Legend.Add("Sales", salesBars)
	p.Legend.Add("Profit", profitBars)
	p.Legend.Top = true
	p.NominalX(keys...)
	return nil
}

func regions(p *plot.Plot, aggs *domain.Aggregations) error {
	p.X.Label.Text = "Region"
	p.Y.Label.Text = "Profit"
	return singleBars(p, aggs.Regions, func(g domain.GroupTotal) float64 { return g.Profit })
}

func topProducts(p *plot.Plot, aggs *domain.Aggregations) error {
	p.X.Label.Text = "Product Name"
	p.Y.Label.Text = "Sales"
	if err := singleBars(p, aggs.TopProducts, func(g domain.GroupTotal) float64 { return g.Sales }); err != nil {
		return err
	}
	rotateTickLabels(p)
	return nil
}

func singleBars(p *plot.Plot, groups []domain.GroupTotal, metric func(domain.GroupTotal) float64) error {
	if len(groups) == 0 {
		return nil
	}
	keys := make([]string, len(groups))
	values := make(plotter.Values, len(groups))
	for i, g := range groups {
		keys[i] = g.Key
		values[i] = metric(g)
	}

	bars, err := plotter.NewBarChart(values, barWidth)
	if err != nil {
		return err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0

	p.Add(bars)
	p.NominalX(keys...)
	return nil
}

func subCategories(p *plot.Plot, aggs *domain.Aggregations) error {
	p.HideAxes()
	if len(aggs.SubCategories) == 0 {
		return nil
	}

	pie := newPieChart(aggs.SubCategories)
	p.Add(pie)
	for i, g := range aggs.SubCategories {
		label := fmt.Sprintf("%s (%.1f%%)", g.Key, pie.share(i)*100)
		p.Legend.Add(label, pie.wedge(i))
	}
	p.Legend.Top = true
	return nil
}

func discounts(p *plot.Plot, aggs *domain.Aggregations) error {
	p.X.Label.Text = "Discount"
	p.Y.Label.Text = "Total Sales"
	p.Add(plotter.NewGrid())
	if len(aggs.Discounts) == 0 {
		return nil
	}

	xys := make(plotter.XYs, len(aggs.Discounts))
	maxProfit := 0.0
	for i, d := range aggs.Discounts {
		xys[i] = plotter.XY{X: d.Discount, Y: d.Sales}
		maxProfit = math.Max(maxProfit, math.Abs(d.Profit))
	}

	bubbles, err := plotter.NewScatter(xys)
	if err != nil {
		return err
	}
	bubbles.GlyphStyleFunc = func(i int) draw.GlyphStyle {
		radius := minBubbleRadius
		if maxProfit > 0 {
			scale := math.Abs(aggs.Discounts[i].Profit) / maxProfit
			radius += vg.Length(scale) * (maxBubbleRadius - minBubbleRadius)
		}
		return draw.GlyphStyle{
			Color:  plotutil.Color(0),
			Radius: radius,
			Shape:  draw.CircleGlyph{},
		}
	}

	p.Add(bubbles)
	return nil
}

func segments(p *plot.Plot, aggs *domain.Aggregations) error {
	p.X.Label.Text = "Total Sales"
	p.Y.Label.Text = "Total Profit"
	p.Add(plotter.NewGrid())
	if len(aggs.Segments) == 0 {
		return nil
	}

	byCategory := make(map[string]plotter.XYs)
	for _, s := range aggs.Segments {
		byCategory[s.Category] = append(byCategory[s.Category], plotter.XY{X: s.Sales, Y: s.Profit})
	}
	names := make([]string, 0, len(byCategory))
	for name := range byCategory {
		names = append(names, name)
	}
	slices.Sort(names)

	for i, name := range names {
		sc, err := plotter.NewScatter(byCategory[name])
		if err != nil {
			return err
		}
		sc.GlyphStyle.Color = plotutil.Color(i)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(2)
		p.Add(sc)
		p.Legend.Add(name, sc)
	}
	p.Legend.Top = true
	return nil
}

func rotateTickLabels(p *plot.Plot) {
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	p.X.Tick.Label.YAlign = draw.YCenter
}
