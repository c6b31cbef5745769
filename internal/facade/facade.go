// Package facade performs schema, record and query operations against a
// store addressed per call. Every call opens its own connection and
// releases it before returning; nothing is cached between calls.
//
// Table names, column definitions, value lists and where/set clauses are
// embedded into statement text verbatim. Callers are responsible for
// their correctness and for keeping untrusted input out of them. Use the
// args of ExecuteSQL/ExecuteQuery/QueryRows, or InsertRow/BatchInsert,
// when values come from outside.
package facade

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bgunnarsson/sqlfacade/internal/db"
	"github.com/bgunnarsson/sqlfacade/internal/metrics"
)

// Facade is safe for concurrent use; it holds no per-store state.
type Facade struct {
	dialect db.Dialect
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Facade)

func WithLogger(l *slog.Logger) Option {
	return func(f *Facade) {
		if l != nil {
			f.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(f *Facade) {
		f.metrics = m
	}
}

func New(dialect db.Dialect, opts ...Option) *Facade {
	f := &Facade{
		dialect: dialect,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Facade) Dialect() db.Dialect {
	return f.dialect
}

// Open returns a handle limited to a single connection to store, creating
// the store if the engine does so on first connect. The caller must Close it.
func (f *Facade) Open(ctx context.Context, store string) (*sql.DB, error) {
	return f.open(ctx, "open", store)
}

func (f *Facade) open(ctx context.Context, op, store string) (*sql.DB, error) {
	dsn, err := f.dialect.DSN(store)
	if err != nil {
		return nil, db.NewDataAccessError(op, store, err)
	}

	sqldb, err := sql.Open(f.dialect.DriverName(store), dsn)
	if err != nil {
		return nil, db.NewDataAccessError(op, store, err)
	}

	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	if err := sqldb.PingContext(ctx); err != nil {
		closeErr := sqldb.Close()
		return nil, db.NewDataAccessError(op, store, errors.Join(err, closeErr))
	}

	return sqldb, nil
}

// run opens store, hands the connection to fn and closes it on every path.
// query is only used for logging.
func (f *Facade) run(ctx context.Context, op, store, query string, fn func(*sql.DB) error) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start)
		f.metrics.ObserveOperation(op, elapsed, err)
		if err != nil {
			f.logger.Debug("Statement failed", "op", op, "store", store, "sql", query, "duration", elapsed, "error", err)
			return
		}
		f.logger.Debug("Statement executed", "op", op, "store", store, "sql", query, "duration", elapsed)
	}()

	conn, err := f.open(ctx, op, store)
	if err != nil {
		return err
	}
	f.metrics.ConnectionOpened()
	defer func() {
		closeErr := conn.Close()
		f.metrics.ConnectionClosed()
		if closeErr == nil {
			return
		}
		if err != nil {
			err = errors.Join(err, closeErr)
			return
		}
		err = db.NewDataAccessError(op, store, closeErr)
	}()

	if err := fn(conn); err != nil {
		return db.NewDataAccessError(op, store, err)
	}
	return nil
}

func (f *Facade) exec(ctx context.Context, op, store, query string, args ...any) (db.ExecResult, error) {
	var out db.ExecResult
	err := f.run(ctx, op, store, query, func(conn *sql.DB) error {
		res, err := conn.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		// Not every driver reports both; missing values stay zero.
		if id, err := res.LastInsertId(); err == nil {
			out.LastInsertID = id
		}
		if n, err := res.RowsAffected(); err == nil {
			out.RowsAffected = n
		}
		return nil
	})
	return out, err
}

func (f *Facade) probe(ctx context.Context, op, store, query string, args ...any) (bool, error) {
	var found bool
	err := f.run(ctx, op, store, query, func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		found = rows.Next()
		return rows.Err()
	})
	return found, err
}

// whereSuffix renders an optional WHERE clause. A blank clause matches
// every row.
func whereSuffix(where string) string {
	if strings.TrimSpace(where) == "" {
		return ""
	}
	return " WHERE " + where
}

// CreateTable creates table with the given column definitions unless it
// already exists. columns is engine-native DDL, e.g.
// "id INTEGER PRIMARY KEY, name TEXT".
func (f *Facade) CreateTable(ctx context.Context, store, table, columns string) error {
	_, err := f.exec(ctx, "create_table", store, f.dialect.CreateTableSQL(table, columns))
	return err
}

// DropTable drops table; dropping a missing table is not an error.
func (f *Facade) DropTable(ctx context.Context, store, table string) error {
	_, err := f.exec(ctx, "drop_table", store, f.dialect.DropTableSQL(table))
	return err
}

// TableExists consults the engine's schema catalog for table.
func (f *Facade) TableExists(ctx context.Context, store, table string) (bool, error) {
	return f.probe(ctx, "table_exists", store, f.dialect.TableExistsSQL(), table)
}

func (f *Facade) ListTables(ctx context.Context, store string) ([]string, error) {
	query := f.dialect.ListTablesSQL()
	out := []string{}
	err := f.run(ctx, "list_tables", store, query, func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, query)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			out = append(out, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DescribeTable lists the columns of table in declaration order. A missing
// table yields no columns.
func (f *Facade) DescribeTable(ctx context.Context, store, table string) ([]db.Column, error) {
	query, args := f.dialect.ColumnsSQL(table)
	cols := []db.Column{}
	err := f.run(ctx, "describe_table", store, query, func(conn *sql.DB) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var name string
			var ctype sql.NullString
			if err := rows.Scan(&name, &ctype); err != nil {
				return err
			}
			cols = append(cols, db.Column{
				Name: name,
				Type: ctype.String,
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return cols, nil
}

// InsertRecord inserts one row. values is a comma-separated list of SQL
// literals in table column order, e.g. "1, 'John Doe'".
func (f *Facade) InsertRecord(ctx context.Context, store, table, values string) error {
	query := fmt.Sprintf("INSERT INTO %s VALUES (%s);", table, values)
	_, err := f.exec(ctx, "insert_record", store, query)
	return err
}

// UpdateRecords applies set (e.g. "name = 'Jane Doe'") to rows matching
// where and returns the number of rows changed. A blank where updates
// every row.
func (f *Facade) UpdateRecords(ctx context.Context, store, table, set, where string) (int64, error) {
	query := fmt.Sprintf("UPDATE %s SET %s%s;", table, set, whereSuffix(where))
	res, err := f.exec(ctx, "update_records", store, query)
	return res.RowsAffected, err
}

// DeleteRecords deletes rows matching where and returns how many went. A
// blank where deletes every row.
func (f *Facade) DeleteRecords(ctx context.Context, store, table, where string) (int64, error) {
	query := fmt.Sprintf("DELETE FROM %s%s;", table, whereSuffix(where))
	res, err := f.exec(ctx, "delete_records", store, query)
	return res.RowsAffected, err
}

// ExecuteSQL runs a statement that returns no rows. args are bound to the
// statement's placeholders.
func (f *Facade) ExecuteSQL(ctx context.Context, store, query string, args ...any) (db.ExecResult, error) {
	return f.exec(ctx, "execute_sql", store, query, args...)
}

// ReadRecords selects columns (e.g. "*" or "id, name") from every row of
// table. The result is empty, never nil, when the table has no rows.
func (f *Facade) ReadRecords(ctx context.Context, store, table, columns string) ([]db.Record, error) {
	rows, err := f.ReadRows(ctx, store, table, columns)
	if err != nil {
		return nil, err
	}
	return rows.Records(), nil
}

// ReadRows is ReadRecords keeping column order and declared types.
func (f *Facade) ReadRows(ctx context.Context, store, table, columns string) (*db.Rows, error) {
	query := fmt.Sprintf("SELECT %s FROM %s;", columns, table)
	return f.queryRows(ctx, "read_records", store, query)
}

// ExecuteQuery runs query and returns each row keyed by result column name.
func (f *Facade) ExecuteQuery(ctx context.Context, store, query string, args ...any) ([]db.Record, error) {
	rows, err := f.queryRows(ctx, "execute_query", store, query, args...)
	if err != nil {
		return nil, err
	}
	return rows.Records(), nil
}

// QueryRows is ExecuteQuery keeping column order and declared types.
func (f *Facade) QueryRows(ctx context.Context, store, query string, args ...any) (*db.Rows, error) {
	return f.queryRows(ctx, "query_rows", store, query, args...)
}

func (f *Facade) queryRows(ctx context.Context, op, store, query string, args ...any) (*db.Rows, error) {
	var out *db.Rows
	err := f.run(ctx, op, store, query, func(conn *sql.DB) error {
		rows, err := db.ScanQuery(ctx, conn, f.dialect, query, args...)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RecordsExist reports whether table has at least one row. At most one row
// is fetched.
func (f *Facade) RecordsExist(ctx context.Context, store, table string) (bool, error) {
	return f.probe(ctx, "records_exist", store, f.dialect.ExistsSQL(table, ""))
}

// RecordsExistWhere reports whether any row of table matches where.
func (f *Facade) RecordsExistWhere(ctx context.Context, store, table, where string) (bool, error) {
	return f.probe(ctx, "records_exist", store, f.dialect.ExistsSQL(table, where))
}

// RecordCount returns the number of rows in table.
func (f *Facade) RecordCount(ctx context.Context, store, table string) (int64, error) {
	query := f.dialect.CountSQL(table)
	var n int64
	err := f.run(ctx, "record_count", store, query, func(conn *sql.DB) error {
		err := conn.QueryRowContext(ctx, query).Scan(&n)
		if errors.Is(err, sql.ErrNoRows) {
			n = 0
			return nil
		}
		return err
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}
