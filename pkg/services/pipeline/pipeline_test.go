package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/services/charts"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const header = "Order Date,Ship Date,Sales,Profit,Discount,Category,Sub-Category,Region,Product Name\n"

const twoRows = header +
	"2024-01-15,2024-01-18,100,10,0,A,Chairs,West,Chair\n" +
	"2024-02-03,2024-02-05,200,20,0.1,A,Tables,East,Table\n"

type mockBuilder struct {
	mock.Mock
}

func (m *mockBuilder) Build(ctx context.Context, insights domain.Insights, items []charts.Chart) (*domain.Document, error) {
	args := m.Called(ctx, insights, items)
	doc, _ := args.Get(0).(*domain.Document)
	return doc, args.Error(1)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) ObserveStage(stage string, err error, took time.Duration) {
	m.Called(stage, err != nil)
}

func (m *mockRecorder) AddRows(kind string, n int) {
	m.Called(kind, n)
}

func newPipeline(builder DocumentBuilder, opts ...Option) *Pipeline {
	return New(analysis.NewMemoryAggregator(analysis.DefaultTopProducts), builder, opts...)
}

func TestGenerate_TwoRowEndToEnd(t *testing.T) {
	stamp := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	builder := report.NewBuilder(
		report.WithClock(func() time.Time { return stamp }),
		report.WithScratchDir(t.TempDir()),
	)

	res, err := newPipeline(builder).Generate(context.Background(), strings.NewReader(twoRows))
	require.NoError(t, err)

	monthly := res.Analysis.Aggregations.Monthly
	require.Len(t, monthly, 2)
	assert.Equal(t, "2024-01", monthly[0].Month.String())
	assert.Equal(t, "2024-02", monthly[1].Month.String())
	assert.Equal(t, 300.0, monthly[0].Sales+monthly[1].Sales)
	assert.Equal(t, 30.0, monthly[0].Profit+monthly[1].Profit)

	assert.Equal(t, "1. Total Sales: $300.00", report.InsightLines(res.Insights)[0])
	assert.Equal(t, "A", res.Insights.BestCategory)
	assert.Equal(t, "East", res.Insights.BestRegion)
	assert.Equal(t, "Table", res.Insights.TopProduct)

	require.NotNil(t, res.Document)
	assert.Equal(t, "sales_report.pdf", res.Document.FileName)
	assert.Equal(t, stamp, res.Document.GeneratedAt)
	assert.Len(t, res.Document.Charts, 7)
}

func TestAnalyze_DropsDuplicates(t *testing.T) {
	input := twoRows + "2024-01-15,2024-01-18,100,10,0,A,Chairs,West,Chair\n"

	res, err := newPipeline(&mockBuilder{}).Analyze(context.Background(), strings.NewReader(input))
	require.NoError(t, err)

	assert.Equal(t, 3, res.RowsRead)
	assert.Equal(t, 1, res.RowsDropped)
	assert.Equal(t, 2, res.Table.Len())
}

func TestGenerate_HeaderOnly(t *testing.T) {
	builder := &mockBuilder{}
	p := newPipeline(builder)

	res, err := p.Analyze(context.Background(), strings.NewReader(header))
	require.NoError(t, err)
	aggs := res.Aggregations
	assert.Empty(t, aggs.Monthly)
	assert.Empty(t, aggs.Categories)
	assert.Empty(t, aggs.Regions)
	assert.Empty(t, aggs.TopProducts)
	assert.Empty(t, aggs.SubCategories)
	assert.Empty(t, aggs.Discounts)
	assert.Empty(t, aggs.Segments)

	_, err = p.Generate(context.Background(), strings.NewReader(header))
	require.ErrorIs(t, err, domain.ErrEmptyResult)
	builder.AssertNotCalled(t, "Build", mock.Anything, mock.Anything, mock.Anything)
}

func TestGenerate_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
		stage string
	}{
		{
			name:  "unparseable date",
			input: header + "someday,2024-01-18,100,10,0,A,Chairs,West,Chair\n",
			want:  domain.ErrMalformedInput,
			stage: StageClean,
		},
		{
			name:  "non numeric sales",
			input: header + "2024-01-15,2024-01-18,lots,10,0,A,Chairs,West,Chair\n",
			want:  domain.ErrMalformedInput,
			stage: StageLoad,
		},
		{
			name:  "missing region",
			input: "Order Date,Sales,Profit,Discount,Category,Sub-Category,Product Name\n2024-01-15,1,1,0,A,B,C\n",
			want:  domain.ErrMissingColumn,
			stage: StageLoad,
		},
		{
			name:  "missing order date",
			input: "Sales,Profit,Discount,Category,Sub-Category,Region,Product Name\n1,1,0,A,B,West,C\n",
			want:  domain.ErrMissingColumn,
			stage: StageDerive,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newPipeline(&mockBuilder{}).Generate(context.Background(), strings.NewReader(tt.input))
			require.ErrorIs(t, err, tt.want)
			assert.True(t, strings.HasPrefix(err.Error(), tt.stage+":"), err.Error())
		})
	}
}

func TestGenerate_DocumentFailure(t *testing.T) {
	builder := &mockBuilder{}
	builder.On("Build", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	_, err := newPipeline(builder).Generate(context.Background(), strings.NewReader(twoRows))
	require.ErrorIs(t, err, assert.AnError)
	builder.AssertExpectations(t)
}

func TestGenerate_RecordsStages(t *testing.T) {
	rec := &mockRecorder{}
	rec.On("AddRows", "read", 2).Once()
	rec.On("AddRows", "dropped", 0).Once()
	for _, stage := range []string{StageLoad, StageClean, StageDerive, StageAggregate, StageInsights, StageCharts, StageDocument} {
		rec.On("ObserveStage", stage, false).Once()
	}

	builder := &mockBuilder{}
	builder.On("Build", mock.Anything, mock.Anything, mock.MatchedBy(func(items []charts.Chart) bool {
		return len(items) == 7
	})).Return(&domain.Document{FileName: report.FileName}, nil)

	res, err := newPipeline(builder, WithRecorder(rec)).Generate(context.Background(), strings.NewReader(twoRows))
	require.NoError(t, err)
	assert.Equal(t, report.FileName, res.Document.FileName)

	rec.AssertExpectations(t)
	builder.AssertExpectations(t)
}
