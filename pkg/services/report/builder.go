package report

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/charts"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
	"gonum.org/v1/plot/vg"
)

const (
	FileName = "sales_report.pdf"
	MimeType = "application/pdf"
	Title    = "Sales Data Analysis Report"

	timestampLayout = "2006-01-02 15:04:05"
)

// Layout positions everything on the page in points, origin top-left.
type Layout struct {
	PageHeight float64
	Margin     float64

	TextX        float64
	TitleY       float64
	TimestampY   float64
	InsightsY    float64
	InsightsStep float64

	ImageX      float64
	ImageTop    float64
	ImageWidth  float64
	ImageHeight float64
	ImagePitch  float64

	// Size of the scratch PNG each chart is rendered to before embedding.
	ChartWidth  vg.Length
	ChartHeight vg.Length
}

// DefaultLayout is a letter page with the title block on top and charts
// stacked below it.
func DefaultLayout() Layout {
	return Layout{
		PageHeight:   792,
		Margin:       36,
		TextX:        100,
		TitleY:       42,
		TimestampY:   62,
		InsightsY:    82,
		InsightsStep: 20,
		ImageX:       50,
		ImageTop:     210,
		ImageWidth:   500,
		ImageHeight:  200,
		ImagePitch:   250,
		ChartWidth:   10 * vg.Inch,
		ChartHeight:  4 * vg.Inch,
	}
}

// Builder assembles report documents.
type Builder struct {
	layout     Layout
	now        func() time.Time
	scratchDir string
	chartsDir  string
}

type Option func(*Builder)

// WithClock overrides the time source used for the report timestamp.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithLayout replaces the default page layout.
func WithLayout(l Layout) Option {
	return func(b *Builder) { b.layout = l }
}

// WithChartSize sets the size, in points, of the images charts are rendered
// to. Non-positive values keep the default.
func WithChartSize(width, height float64) Option {
	return func(b *Builder) {
		if width > 0 {
			b.layout.ChartWidth = vg.Length(width)
		}
		if height > 0 {
			b.layout.ChartHeight = vg.Length(height)
		}
	}
}

// WithScratchDir sets the parent directory for per-build scratch images.
// Defaults to os.TempDir.
func WithScratchDir(dir string) Option {
	return func(b *Builder) { b.scratchDir = dir }
}

// WithChartsDir keeps the chart images in dir instead of a scratch
// directory that is removed after the build.
func WithChartsDir(dir string) Option {
	return func(b *Builder) { b.chartsDir = dir }
}

func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		layout: DefaultLayout(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders every chart to a PNG, lays out the title block, the insight
// lines and the chart images, and returns the finished PDF. A new page is
// started whenever the next image would cross the bottom margin.
func (b *Builder) Build(ctx context.Context, insights domain.Insights, items []charts.Chart) (*domain.Document, error) {
	logger := zerolog.Ctx(ctx)

	dir, cleanup, err := b.imageDir()
	if err != nil {
		return nil, err
	}
	defer cleanup()

	now := b.now()
	l := b.layout

	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(Title, false)
	pdf.SetCreator("sales-atlas", false)
	pdf.SetCreationDate(now)
	pdf.SetModificationDate(now)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Text(l.TextX, l.TitleY, Title)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Text(l.TextX, l.TimestampY, "Report generated on: "+now.Format(timestampLayout))
	pdf.Text(l.TextX, l.InsightsY, "Key Insights:")
	y := l.InsightsY + l.InsightsStep
	for _, line := range InsightLines(insights) {
		pdf.Text(l.TextX, y, line)
		y += l.InsightsStep
	}

	names := make([]string, 0, len(items))
	y = l.ImageTop
	for _, c := range items {
		path := filepath.Join(dir, c.Name+".png")
		if err := writeImage(path, c, l.ChartWidth, l.ChartHeight); err != nil {
			return nil, err
		}
		if y+l.ImageHeight > l.PageHeight-l.Margin {
			pdf.AddPage()
			y = l.Margin
		}
		pdf.ImageOptions(path, l.ImageX, y, l.ImageWidth, l.ImageHeight, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
		if err := pdf.Error(); err != nil {
			return nil, fmt.Errorf("embed chart %s: %w", c.Name, err)
		}
		y += l.ImagePitch
		names = append(names, filepath.Base(path))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write report document: %w", err)
	}

	doc := &domain.Document{
		FileName:    FileName,
		MimeType:    MimeType,
		Content:     buf.Bytes(),
		Pages:       pdf.PageCount(),
		GeneratedAt: now,
		Insights:    insights,
		Charts:      names,
	}
	logger.Debug().
		Int("pages", doc.Pages).
		Int("charts", len(names)).
		Int("bytes", len(doc.Content)).
		Msg("report document assembled")
	return doc, nil
}

func (b *Builder) imageDir() (string, func(), error) {
	if b.chartsDir != "" {
		if err := os.MkdirAll(b.chartsDir, 0o755); err != nil {
			return "", nil, fmt.Errorf("create charts directory: %w", err)
		}
		return b.chartsDir, func() {}, nil
	}
	dir, err := os.MkdirTemp(b.scratchDir, "sales-report-*")
	if err != nil {
		return "", nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func writeImage(path string, c charts.Chart, width, height vg.Length) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chart image %s: %w", c.Name, err)
	}
	if err := c.Render(f, width, height); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close chart image %s: %w", c.Name, err)
	}
	return nil
}
