// Package cli exposes every facade operation as a sqlfacade subcommand.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/bgunnarsson/sqlfacade/internal/app"
	"github.com/bgunnarsson/sqlfacade/internal/config"
	"github.com/bgunnarsson/sqlfacade/internal/facade"
	"github.com/bgunnarsson/sqlfacade/internal/logging"
	"github.com/bgunnarsson/sqlfacade/internal/metrics"
)

// CLI represents the complete command structure for the sqlfacade binary
type CLI struct {
	// Global flags
	Config   string `help:"Path to config file (default ./sqlfacade.yaml when present)" type:"path"`
	Driver   string `help:"Database driver: sqlite, postgres, mysql or mssql"`
	LogLevel string `help:"Log level: debug, info, warn or error"`
	Format   string `help:"Output format: table or json"`
	MaxWidth int    `help:"Max column width for table output"`
	Metrics  bool   `help:"Print Prometheus metrics to stderr when the command finishes"`

	// Schema
	Tables      TablesCmd      `cmd:"" help:"List tables in a store"`
	Describe    DescribeCmd    `cmd:"" help:"Show the columns of a table"`
	CreateTable CreateTableCmd `cmd:"" help:"Create a table unless it already exists"`
	DropTable   DropTableCmd   `cmd:"" help:"Drop a table if it exists"`
	TableExists TableExistsCmd `cmd:"" help:"Report whether a table exists"`

	// Mutation
	Insert InsertCmd `cmd:"" help:"Insert one row"`
	Update UpdateCmd `cmd:"" help:"Update rows matching a where clause"`
	Delete DeleteCmd `cmd:"" help:"Delete rows matching a where clause"`
	Exec   ExecCmd   `cmd:"" help:"Execute a statement that returns no rows"`

	// Query
	Read   ReadCmd   `cmd:"" help:"Read every row of a table"`
	Query  QueryCmd  `cmd:"" help:"Run a query (opens the shell on a terminal when no SQL is given)"`
	Exists ExistsCmd `cmd:"" help:"Report whether a table has rows, optionally matching a where clause"`
	Count  CountCmd  `cmd:"" help:"Count the rows of a table"`

	Shell ShellCmd `cmd:"" help:"Interactive SQL shell"`
}

// runContext is bound into every command's Run method.
type runContext struct {
	ctx      context.Context
	facade   *facade.Facade
	logger   *slog.Logger
	out      io.Writer
	format   app.Format
	maxWidth int
	tty      bool
	registry *prometheus.Registry
}

// Main parses args, runs the selected command and returns the process exit code.
func Main(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	var cli CLI

	parser, err := kong.New(&cli,
		kong.Name("sqlfacade"),
		kong.Description("Schema, record and query operations against file-per-store databases."),
		kong.UsageOnError(),
		kong.Writers(stdout, stderr),
	)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 2
	}

	rc, err := newRunContext(ctx, &cli, stdout, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "error:", err)
		return 1
	}

	code := 0
	if err := kctx.Run(rc); err != nil {
		rc.logger.Error("Command failed", "error", err)
		code = 1
	}

	if rc.registry != nil {
		if err := metrics.WriteText(stderr, rc.registry); err != nil {
			rc.logger.Error("Failed to write metrics", "error", err)
		}
	}
	return code
}

func newRunContext(ctx context.Context, cli *CLI, stdout, stderr io.Writer) (*runContext, error) {
	cfg, err := config.Load(viper.New(), cli.Config)
	if err != nil {
		return nil, err
	}

	// Flags win over config file and environment
	if cli.Driver != "" {
		cfg.Driver = cli.Driver
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	if cli.Format != "" {
		cfg.Output.Format = cli.Format
	}
	if cli.MaxWidth > 0 {
		cfg.Output.MaxWidth = cli.MaxWidth
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	var registry *prometheus.Registry
	if cli.Metrics {
		registry = prometheus.NewRegistry()
	}

	f, err := app.NewFacade(cfg, logger, registerer(registry))
	if err != nil {
		return nil, err
	}

	tty := false
	if file, ok := stdout.(*os.File); ok {
		tty = term.IsTerminal(int(file.Fd()))
	}

	return &runContext{
		ctx:      ctx,
		facade:   f,
		logger:   logger,
		out:      stdout,
		format:   app.Format(cfg.Output.Format),
		maxWidth: cfg.Output.MaxWidth,
		tty:      tty,
		registry: registry,
	}, nil
}

// registerer keeps a nil registry from becoming a non-nil interface.
func registerer(r *prometheus.Registry) prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r
}

// emit writes a scalar result, as JSON when requested.
func (rc *runContext) emit(v any) error {
	if rc.format == app.FormatJSON {
		return json.NewEncoder(rc.out).Encode(v)
	}
	_, err := fmt.Fprintln(rc.out, v)
	return err
}
