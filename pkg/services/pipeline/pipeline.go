// Package pipeline wires ingestion, aggregation, charting and reporting into
// a single call per uploaded dataset.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/de-tools/sales-atlas/pkg/metrics"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/services/charts"
	"github.com/de-tools/sales-atlas/pkg/services/ingest"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/rs/zerolog"
)

const (
	StageLoad      = "load"
	StageClean     = "clean"
	StageDerive    = "derive"
	StageAggregate = "aggregate"
	StageInsights  = "insights"
	StageCharts    = "charts"
	StageDocument  = "document"
)

// DocumentBuilder lays out insights and charts into a document.
type DocumentBuilder interface {
	Build(ctx context.Context, insights domain.Insights, items []charts.Chart) (*domain.Document, error)
}

// Pipeline runs one dataset from raw CSV to report. It keeps no state
// between calls.
type Pipeline struct {
	aggregator analysis.Aggregator
	builder    DocumentBuilder
	recorder   metrics.Recorder
}

type Option func(*Pipeline)

func WithRecorder(r metrics.Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

func New(aggregator analysis.Aggregator, builder DocumentBuilder, opts ...Option) *Pipeline {
	p := &Pipeline{
		aggregator: aggregator,
		builder:    builder,
		recorder:   metrics.Nop{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Analyze loads, cleans and aggregates the dataset in r.
func (p *Pipeline) Analyze(ctx context.Context, r io.Reader) (*domain.Analysis, error) {
	var (
		table   *domain.Table
		dropped int
		aggs    *domain.Aggregations
	)

	err := p.stage(ctx, StageLoad, func() (err error) {
		table, err = ingest.Load(ctx, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	read := table.Len()
	p.recorder.AddRows("read", read)

	err = p.stage(ctx, StageClean, func() (err error) {
		dropped, err = ingest.Clean(ctx, table)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.recorder.AddRows("dropped", dropped)

	err = p.stage(ctx, StageDerive, func() error {
		return ingest.DeriveFields(table)
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageAggregate, func() (err error) {
		aggs, err = p.aggregator.Aggregate(ctx, table)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &domain.Analysis{
		Table:        table,
		RowsRead:     read,
		RowsDropped:  dropped,
		Aggregations: aggs,
	}, nil
}

// Generate runs Analyze and then produces the insights, the charts and the
// PDF document.
func (p *Pipeline) Generate(ctx context.Context, r io.Reader) (*domain.Result, error) {
	result, err := p.Analyze(ctx, r)
	if err != nil {
		return nil, err
	}

	var (
		insights domain.Insights
		items    []charts.Chart
		doc      *domain.Document
	)

	err = p.stage(ctx, StageInsights, func() (err error) {
		insights, err = report.ComputeInsights(result.Aggregations)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageCharts, func() (err error) {
		items, err = charts.Build(result.Aggregations)
		return err
	})
	if err != nil {
		return nil, err
	}

	err = p.stage(ctx, StageDocument, func() (err error) {
		doc, err = p.builder.Build(ctx, insights, items)
		return err
	})
	if err != nil {
		return nil, err
	}

	return &domain.Result{
		Analysis: result,
		Insights: insights,
		Document: doc,
	}, nil
}

func (p *Pipeline) stage(ctx context.Context, name string, fn func() error) error {
	logger := zerolog.Ctx(ctx)

	start := time.Now()
	err := fn()
	took := time.Since(start)
	p.recorder.ObserveStage(name, err, took)

	if err != nil {
		logger.Error().Err(err).Str("stage", name).Msg("pipeline stage failed")
		return fmt.Errorf("%s: %w", name, err)
	}
	logger.Debug().Str("stage", name).Dur("took", took).Msg("pipeline stage done")
	return nil
}
