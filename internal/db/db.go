package db

import (
	"context"
	"database/sql"
	"errors"
)

// ErrUnsupportedDriver is returned when no dialect exists for a driver name.
var ErrUnsupportedDriver = errors.New("unsupported driver")

type Column struct {
	Name string
	Type string
}

type Row []Value

type Rows struct {
	Columns []Column
	Data    []Row
}

// Record is a single row keyed by column name.
type Record map[string]Value

// Records converts the ordered result into column-keyed records.
// The returned slice is never nil.
func (r *Rows) Records() []Record {
	out := make([]Record, 0, len(r.Data))
	for _, row := range r.Data {
		rec := make(Record, len(r.Columns))
		for i, col := range r.Columns {
			if i < len(row) {
				rec[col.Name] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// ExecResult reports the outcome of a statement that returns no rows.
type ExecResult struct {
	LastInsertID int64
	RowsAffected int64
}

// Dialect describes how one engine is opened and how the facade's
// statements are spelled for it. Table names, column lists and clauses
// handed to the *SQL builders are caller text and are embedded verbatim.
type Dialect interface {
	// Name is the short driver name used in configuration ("sqlite", ...).
	Name() string
	// DriverName is the database/sql driver registered by the engine package.
	DriverName(store string) string
	// DSN turns a store identifier into a connection string.
	DSN(store string) (string, error)

	CreateTableSQL(table, columns string) string
	DropTableSQL(table string) string
	// TableExistsSQL takes the table name as its single bound parameter.
	TableExistsSQL() string
	ListTablesSQL() string
	// ColumnsSQL takes the table name as bound parameter(s) and yields
	// (name, type) rows.
	ColumnsSQL(table string) (string, []any)
	ExistsSQL(table, where string) string
	CountSQL(table string) string

	Placeholder(n int) string
	QuoteIdent(id string) string

	// Convert maps one scanned driver value into a Value.
	Convert(v any, dbType string) Value
}

// ScanRows drains rows into an ordered result using the dialect's
// value conversion. The caller still owns rows and must close it.
func ScanRows(rows *sql.Rows, d Dialect) (*Rows, error) {
	colNames, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}

	header := make([]Column, len(colNames))
	for i, name := range colNames {
		typ := ""
		if i < len(colTypes) && colTypes[i] != nil {
			typ = colTypes[i].DatabaseTypeName()
		}
		header[i] = Column{
			Name: name,
			Type: typ,
		}
	}

	data := []Row{}
	for rows.Next() {
		raw := make([]any, len(colNames))
		ptrs := make([]any, len(colNames))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(Row, len(raw))
		for i, v := range raw {
			row[i] = d.Convert(v, header[i].Type)
		}
		data = append(data, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Rows{
		Columns: header,
		Data:    data,
	}, nil
}

// QueryContext is the subset of *sql.DB used by ScanQuery.
type QueryContext interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// ScanQuery runs query on q and scans the full result, closing the cursor
// on every path.
func ScanQuery(ctx context.Context, q QueryContext, d Dialect, query string, args ...any) (*Rows, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return ScanRows(rows, d)
}
