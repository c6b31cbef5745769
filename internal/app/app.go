package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bgunnarsson/sqlfacade/internal/config"
	"github.com/bgunnarsson/sqlfacade/internal/db"
	"github.com/bgunnarsson/sqlfacade/internal/db/mssql"
	"github.com/bgunnarsson/sqlfacade/internal/db/mysql"
	"github.com/bgunnarsson/sqlfacade/internal/db/postgres"
	"github.com/bgunnarsson/sqlfacade/internal/db/sqlite"
	"github.com/bgunnarsson/sqlfacade/internal/facade"
	"github.com/bgunnarsson/sqlfacade/internal/metrics"
	"github.com/bgunnarsson/sqlfacade/internal/ui"
)

type Driver string

const (
	DriverSqlite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
	DriverMssql    Driver = "mssql"
	DriverMysql    Driver = "mysql"
)

// central factory
func NewDialect(cfg *config.Config) (db.Dialect, error) {
	switch Driver(cfg.Driver) {
	case "", DriverSqlite:
		return &sqlite.Dialect{
			BusyTimeout: cfg.SQLite.BusyTimeout,
			ForeignKeys: cfg.SQLite.ForeignKeys,
			WAL:         cfg.SQLite.WAL,
		}, nil
	case DriverPostgres:
		return postgres.New(), nil
	case DriverMssql:
		return mssql.New(), nil
	case DriverMysql:
		return mysql.New(), nil
	default:
		return nil, fmt.Errorf("%w %q", db.ErrUnsupportedDriver, cfg.Driver)
	}
}

// NewFacade builds the single facade instance handed to every consumer.
// reg may be nil to skip metrics registration.
func NewFacade(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) (*facade.Facade, error) {
	dialect, err := NewDialect(cfg)
	if err != nil {
		return nil, err
	}

	opts := []facade.Option{facade.WithLogger(logger)}
	if reg != nil {
		m, err := metrics.New(reg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, facade.WithMetrics(m))
	}

	return facade.New(dialect, opts...), nil
}

func RunInteractive(ctx context.Context, f *facade.Facade, store string) error {
	return ui.Run(ctx, f, store)
}
