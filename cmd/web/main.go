package main

import (
	"fmt"
	"net"
	"os"
	"strconv"

	"github.com/de-tools/sales-atlas/pkg/handlers/reports"
	"github.com/de-tools/sales-atlas/pkg/metrics"
	"github.com/de-tools/sales-atlas/pkg/server"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/services/config"
	"github.com/de-tools/sales-atlas/pkg/services/pipeline"
	"github.com/de-tools/sales-atlas/pkg/services/report"
	"github.com/de-tools/sales-atlas/pkg/store/artifact"
	"github.com/de-tools/sales-atlas/pkg/store/duckdb/sales"
	"github.com/de-tools/sales-atlas/pkg/store/s3"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgPath string

func main() {
	var rootCmd = &cobra.Command{
		Use:   "web",
		Short: "Start the web server for Sales Atlas",
		RunE:  runServer,
	}

	rootCmd.Flags().StringVarP(&cfgPath, "config", "c", "", "Path to a YAML config file")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Error loading .env file: %v\n", err)
	}

	settings, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
	ctx := logger.WithContext(cmd.Context())

	registry := analysis.NewRegistry()
	if settings.Analysis.Engine == analysis.EngineDuckDB {
		db, err := sales.Register(registry, settings.Analysis.DuckDBPath)
		if err != nil {
			return err
		}
		defer db.Close()
	}
	aggregator, err := registry.Create(settings.Analysis.Engine, settings.Analysis.TopProducts)
	if err != nil {
		return fmt.Errorf("failed to create aggregator: %w", err)
	}

	recorder, err := metrics.NewPrometheus()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	store := artifact.NewStore(settings.Report.DownloadTTL)
	if err := recorder.TrackStoredReports(store.Len); err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	p := pipeline.New(
		aggregator,
		report.NewBuilder(report.WithChartSize(settings.Report.ChartWidth, settings.Report.ChartHeight)),
		pipeline.WithRecorder(recorder),
	)

	handlerOpts := []reports.Option{reports.WithMaxUploadBytes(settings.Upload.MaxBytes)}
	if settings.Publish.Enabled() {
		ps := settings.Publish
		publisher, err := s3.NewFromConfig(ctx, ps.Bucket, ps.Prefix, ps.Region)
		if err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, reports.WithPublisher(publisher))
		logger.Info().Msgf("Publishing reports to s3://%s/%s", ps.Bucket, ps.Prefix)
	}

	addr := net.JoinHostPort(settings.Server.Host, strconv.Itoa(settings.Server.Port))
	logger.Info().
		Str("engine", settings.Analysis.Engine).
		Strs("engines", registry.ListEngines()).
		Msg("configuration loaded")

	api := server.NewWebAPI(server.Config{
		Addr:            addr,
		ShutdownTimeout: settings.Server.ShutdownTimeout,
		Dependencies: server.Dependencies{
			Reports: reports.NewHandler(p, store, handlerOpts...),
			Metrics: recorder.Handler(),
			Logger:  logger,
		},
	})

	return api.Start()
}
