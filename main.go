package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource"
	_ "github.com/ekaya-inc/ekaya-dialects/pkg/adapters/datasource/all"
	"github.com/ekaya-inc/ekaya-dialects/pkg/config"
	"github.com/ekaya-inc/ekaya-dialects/pkg/dberrors"
	"github.com/ekaya-inc/ekaya-dialects/pkg/logging"
	"github.com/ekaya-inc/ekaya-dialects/pkg/metrics"
	"github.com/ekaya-inc/ekaya-dialects/pkg/services"
	sqlparse "github.com/ekaya-inc/ekaya-dialects/pkg/sql"
)

// Version is set at build time via ldflags
var Version = "dev"

const usage = `usage: ekaya-dialects <command> [flags]

commands:
  engines                      list registered engines
  grains   -engine E           list the time grains of an engine
  prepare  -engine E [-limit N] [-force] [-readonly] [-single] SQL
  readonly -engine E SQL       report whether every statement is read-only
  timestamp -engine E -col C [-pdf F] [-grain G] [-label L]
  validate -engine E -host H -port P -user U -password W -database D
  tables   -engine E -uri URI [-schema S] [-views]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load(Version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, prometheus.DefaultRegisterer, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		var engineErrs dberrors.Errors
		var verr *services.ValidationError
		switch {
		case errors.As(err, &verr):
			_ = writeJSON(os.Stdout, verr)
		case errors.As(err, &engineErrs):
			_ = writeJSON(os.Stdout, engineErrs)
		}
		logger.Error("Command failed", zap.String("command", os.Args[1]), zap.String("error", logging.SanitizeError(err)))
		os.Exit(1)
	}
}

func run(
	ctx context.Context,
	cfg *config.Config,
	logger *zap.Logger,
	reg prometheus.Registerer,
	command string,
	args []string,
	out io.Writer,
) error {
	collector, err := metrics.New(reg)
	if err != nil {
		return err
	}

	registry, err := datasource.NewRegistry(cfg.Settings(), logger)
	if err != nil {
		return err
	}

	logger.Debug("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("version", cfg.Version),
		zap.Int("row_limit", cfg.RowLimit()),
		zap.Strings("grain_denylist", cfg.TimeGrains.Denylist))

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	engine := fs.String("engine", "", "engine name, e.g. postgresql")

	switch command {
	case "engines":
		if err := fs.Parse(args); err != nil {
			return err
		}
		return writeJSON(out, datasource.RegisteredAdapters())

	case "grains":
		if err := fs.Parse(args); err != nil {
			return err
		}
		grains, err := registry.TimeGrains(*engine)
		if err != nil {
			return err
		}
		return writeJSON(out, grains)

	case "prepare":
		limit := fs.Int("limit", 0, "requested row limit; 0 means the configured ceiling")
		force := fs.Bool("force", false, "replace an existing smaller limit")
		readOnly := fs.Bool("readonly", true, "reject statements that modify data")
		single := fs.Bool("single", false, "accept exactly one statement")
		if err := fs.Parse(args); err != nil {
			return err
		}
		preparer, err := services.NewQueryPreparer(registry, cfg.RowLimit(), cfg.Query.ParseCacheSize, collector, logger)
		if err != nil {
			return err
		}
		prepare := preparer.Prepare
		if *single {
			prepare = preparer.PrepareSingle
		}
		prepared, err := prepare(*engine, strings.Join(fs.Args(), " "), *limit, *force, *readOnly)
		if err != nil {
			return err
		}
		return writeJSON(out, prepared)

	case "readonly":
		if err := fs.Parse(args); err != nil {
			return err
		}
		spec, err := registry.Get(*engine)
		if err != nil {
			return err
		}
		readOnly, err := sqlparse.IsReadOnlyScript(spec.Dialect(), strings.Join(fs.Args(), " "))
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]bool{"read_only": readOnly})

	case "timestamp":
		col := fs.String("col", "", "column to truncate")
		pdf := fs.String("pdf", "", "column format: epoch_s, epoch_ms or a strftime pattern")
		grain := fs.String("grain", "", "ISO-8601 time grain, e.g. P1D")
		label := fs.String("label", "", "alias for the expression")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *col == "" {
			return fmt.Errorf("-col is required")
		}
		var expr string
		if *label == "" {
			expr, err = registry.TimestampExpression(*engine, *col, *pdf, *grain)
		} else {
			expr, err = registry.TimestampColumn(*engine, *col, *pdf, *grain, *label)
		}
		if err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"expression": expr})

	case "validate":
		var params datasource.ConnectionParameters
		fs.StringVar(&params.Host, "host", "", "database host")
		fs.IntVar(&params.Port, "port", 0, "database port")
		fs.StringVar(&params.Username, "user", "", "username")
		fs.StringVar(&params.Password, "password", "", "password")
		fs.StringVar(&params.Database, "database", "", "database name")
		fs.BoolVar(&params.Encryption, "encryption", false, "require an encrypted connection")
		extra := fs.String("extra", "", "extra JSON")
		if err := fs.Parse(args); err != nil {
			return err
		}
		validator := services.NewDatabaseValidator(registry, nil, collector, logger)
		if err := validator.Validate(ctx, *engine, services.ValidateRequest{Parameters: params, Extra: *extra}); err != nil {
			return err
		}
		return writeJSON(out, map[string]string{"status": "ok"})

	case "tables":
		uri := fs.String("uri", "", "connection URI")
		schema := fs.String("schema", "", "schema to list")
		views := fs.Bool("views", false, "list views instead of tables")
		if err := fs.Parse(args); err != nil {
			return err
		}
		pools := datasource.NewPoolCache(datasource.PoolCacheConfig{
			IdleTTL:  cfg.Datasource.PoolIdleTTL,
			MaxPools: cfg.Datasource.MaxPools,
		}, logger)
		defer pools.Close()
		browser := services.NewMetadataBrowser(registry, pools, collector, logger)
		list := browser.TableNames
		if *views {
			list = browser.ViewNames
		}
		names, err := list(ctx, *engine, *uri, *schema)
		if err != nil {
			return err
		}
		return writeJSON(out, names)

	default:
		return fmt.Errorf("unknown command %q\n%s", command, usage)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
