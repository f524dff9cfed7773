package commands

import (
	"context"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/services/config"
	"github.com/de-tools/sales-atlas/pkg/services/pipeline"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/rs/zerolog"
)

// Env is what a command needs once flags and config have been resolved.
type Env struct {
	Settings *config.Settings
	Registry analysis.Registry
	Logger   zerolog.Logger
}

// EnvLoader resolves the environment lazily, after cobra parsed the flags.
type EnvLoader func(ctx context.Context) (*Env, error)

// ReportHandler prints a text report.
type ReportHandler interface {
	Handle(report *domain.Report) error
}

func (e *Env) pipeline(opts ...report.Option) (*pipeline.Pipeline, error) {
	agg, err := e.Registry.Create(e.Settings.Analysis.Engine, e.Settings.Analysis.TopProducts)
	if err != nil {
		return nil, err
	}
	builderOpts := append([]report.Option{
		report.WithChartSize(e.Settings.Report.ChartWidth, e.Settings.Report.ChartHeight),
	}, opts...)
	return pipeline.New(agg, report.NewBuilder(builderOpts...)), nil
}
