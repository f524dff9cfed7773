package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/de-tools/sales-atlas/pkg/models/domain"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/de-tools/sales-atlas/pkg/store/s3"
	"github.com/spf13/cobra"
)

// PublisherFactory creates the publisher used by --publish.
type PublisherFactory func(ctx context.Context, bucket, prefix, region string) (Publisher, error)

type Publisher interface {
	Publish(ctx context.Context, doc *domain.Document) (string, error)
}

// DefaultPublisherFactory publishes to S3.
func DefaultPublisherFactory(ctx context.Context, bucket, prefix, region string) (Publisher, error) {
	pub, err := s3.NewFromConfig(ctx, bucket, prefix, region)
	if err != nil {
		return nil, err
	}
	return pub, nil
}

type ReportCmd struct {
	input     string
	output    string
	chartsDir string
	publish   bool
	load      EnvLoader
	publisher PublisherFactory
	out       io.Writer
}

func NewReportCmd(load EnvLoader, publisher PublisherFactory, out io.Writer) *cobra.Command {
	rc := &ReportCmd{load: load, publisher: publisher, out: out}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Generate the PDF sales report from a CSV file",
		RunE:  rc.run,
	}

	cmd.Flags().StringVarP(&rc.input, "input", "i", "", "Path to the sales CSV file")
	cmd.Flags().StringVarP(&rc.output, "output", "o", report.FileName, "Where to write the PDF")
	cmd.Flags().StringVar(&rc.chartsDir, "charts-dir", "", "Keep the chart images in this directory")
	cmd.Flags().BoolVar(&rc.publish, "publish", false, "Upload the PDF to the configured S3 bucket")

	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func (rc *ReportCmd) run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	env, err := rc.load(ctx)
	if err != nil {
		return err
	}
	ctx = env.Logger.WithContext(ctx)
	if rc.publish && !env.Settings.Publish.Enabled() {
		return errors.New("--publish requires publish.bucket to be configured")
	}

	var opts []report.Option
	if rc.chartsDir != "" {
		opts = append(opts, report.WithChartsDir(rc.chartsDir))
	}
	p, err := env.pipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	f, err := os.Open(rc.input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	result, err := p.Generate(ctx, f)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	doc := result.Document

	if err := os.WriteFile(rc.output, doc.Content, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	fmt.Fprintf(rc.out, "Report written to %s (%d pages)\n", rc.output, doc.Pages)
	for _, line := range report.InsightLines(result.Insights) {
		fmt.Fprintln(rc.out, line)
	}

	if rc.publish {
		ps := env.Settings.Publish
		pub, err := rc.publisher(ctx, ps.Bucket, ps.Prefix, ps.Region)
		if err != nil {
			return err
		}
		url, err := pub.Publish(ctx, doc)
		if err != nil {
			return err
		}
		fmt.Fprintf(rc.out, "Published to %s\n", url)
	}
	return nil
}
