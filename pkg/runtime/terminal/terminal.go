package terminal

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/de-tools/sales-atlas/pkg/runtime/terminal/commands"
	"github.com/de-tools/sales-atlas/pkg/runtime/terminal/export"
	"github.com/de-tools/sales-atlas/pkg/services/analysis"
	"github.com/de-tools/sales-atlas/pkg/services/config"
	"github.com/de-tools/sales-atlas/pkg/store/duckdb/sales"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// CLI represents the command-line interface
type CLI struct {
	registry  analysis.Registry
	publisher commands.PublisherFactory
	output    io.Writer
	logger    zerolog.Logger
	cfgPath   string
	db        *sql.DB
	rootCmd   *cobra.Command
}

// Options contain configuration for the CLI
type Options struct {
	// Defaults to a registry with the in-memory engine only.
	Registry analysis.Registry
	// Defaults to commands.DefaultPublisherFactory.
	Publisher commands.PublisherFactory
	Output    io.Writer
	Logger    zerolog.Logger
}

// NewCLI creates a new CLI instance
func NewCLI(opts Options) *CLI {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Registry == nil {
		opts.Registry = analysis.NewRegistry()
	}
	if opts.Publisher == nil {
		opts.Publisher = commands.DefaultPublisherFactory
	}

	cli := &CLI{
		registry:  opts.Registry,
		publisher: opts.Publisher,
		output:    opts.Output,
		logger:    opts.Logger,
	}

	cli.rootCmd = cli.newRootCmd()
	return cli
}

func (cli *CLI) Execute() error {
	return cli.ExecuteContext(context.Background())
}

func (cli *CLI) ExecuteContext(ctx context.Context) error {
	err := cli.rootCmd.ExecuteContext(ctx)
	if cerr := cli.close(); err == nil {
		err = cerr
	}
	return err
}

// SetArgs overrides the arguments read from os.Args.
func (cli *CLI) SetArgs(args []string) {
	cli.rootCmd.SetArgs(args)
}

func (cli *CLI) newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sales-atlas",
		Short:         "Sales data analysis and PDF reporting",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(cli.output)
	cmd.PersistentFlags().StringVarP(&cli.cfgPath, "config", "c", "", "Path to a YAML config file")

	handlers := map[string]commands.ReportHandler{
		"table": export.NewReporter(cli.output),
		"text":  NewReporter(cli.output),
	}

	cmd.AddCommand(commands.NewReportCmd(cli.loadEnv, cli.publisher, cli.output))
	cmd.AddCommand(commands.NewSummaryCmd(cli.loadEnv, handlers))

	return cmd
}

// loadEnv reads the config and opens the DuckDB engine when it is selected.
func (cli *CLI) loadEnv(_ context.Context) (*commands.Env, error) {
	settings, err := config.Load(cli.cfgPath)
	if err != nil {
		return nil, err
	}

	level, err := zerolog.ParseLevel(settings.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	logger := cli.logger.Level(level)

	if settings.Analysis.Engine == analysis.EngineDuckDB && !slices.Contains(cli.registry.ListEngines(), analysis.EngineDuckDB) {
		db, err := sales.Register(cli.registry, settings.Analysis.DuckDBPath)
		if err != nil {
			return nil, err
		}
		cli.db = db
	}

	return &commands.Env{
		Settings: settings,
		Registry: cli.registry,
		Logger:   logger,
	}, nil
}

func (cli *CLI) close() error {
	if cli.db == nil {
		return nil
	}
	err := cli.db.Close()
	cli.db = nil
	return err
}
