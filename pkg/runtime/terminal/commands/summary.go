package commands

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/de-tools/sales-atlas/pkg/adapters"
	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

type SummaryCmd struct {
	input    string
	format   string
	load     EnvLoader
	handlers map[string]ReportHandler
}

// NewSummaryCmd prints the aggregations as text. handlers maps a --format
// value to the reporter that prints it.
func NewSummaryCmd(load EnvLoader, handlers map[string]ReportHandler) *cobra.Command {
	sc := &SummaryCmd{load: load, handlers: handlers}
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Print the sales summary of a CSV file",
		RunE:  sc.run,
	}

	formats := make([]string, 0, len(handlers))
	for f := range handlers {
		formats = append(formats, f)
	}
	slices.Sort(formats)

	cmd.Flags().StringVarP(&sc.input, "input", "i", "", "Path to the sales CSV file")
	cmd.Flags().StringVar(&sc.format, "format", "table", "Output format: "+strings.Join(formats, ", "))

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (sc *SummaryCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	handler, ok := sc.handlers[sc.format]
	if !ok {
		return fmt.Errorf("unsupported format %q", sc.format)
	}

	env, err := sc.load(ctx)
	if err != nil {
		return err
	}
	ctx = env.Logger.WithContext(ctx)
	p, err := env.pipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	f, err := os.Open(sc.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	analysis, err := p.Analyze(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to analyze input: %w", err)
	}

	var insights *domain.Insights
	in, err := report.ComputeInsights(analysis.Aggregations)
	switch {
	case err == nil:
		insights = &in
	case errors.Is(err, domain.ErrEmptyResult):
		zerolog.Ctx(ctx).Warn().Err(err).Msg("dataset has no rows to rank")
	default:
		return err
	}

	return handler.Handle(adapters.MapAnalysisDomainToReport(analysis, insights))
}
