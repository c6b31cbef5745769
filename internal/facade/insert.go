package facade

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/bgunnarsson/sqlfacade/internal/db"
)

// InsertRow inserts one row with every value bound as a parameter.
func (f *Facade) InsertRow(ctx context.Context, store, table string, record map[string]any) error {
	_, err := f.BatchInsert(ctx, store, table, []map[string]any{record})
	return err
}

// BatchInsert inserts records in a single transaction, binding every value.
// The column set comes from the first record; later records may omit
// columns (stored as NULL) but may not add new ones. Table and column names
// are quoted as identifiers.
func (f *Facade) BatchInsert(ctx context.Context, store, table string, records []map[string]any) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	// Get column names from the first record
	columns := make([]string, 0, len(records[0]))
	for col := range records[0] {
		columns = append(columns, col)
	}
	if len(columns) == 0 {
		return 0, db.NewDataAccessError("batch_insert", store, fmt.Errorf("insert into %s: first record has no columns", table))
	}
	sort.Strings(columns)

	known := make(map[string]bool, len(columns))
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, col := range columns {
		known[col] = true
		quoted[i] = f.dialect.QuoteIdent(col)
		placeholders[i] = f.dialect.Placeholder(i + 1)
	}
	for i, rec := range records[1:] {
		for col := range rec {
			if !known[col] {
				err := fmt.Errorf("insert into %s: record %d has column %q not present in the first record", table, i+1, col)
				return 0, db.NewDataAccessError("batch_insert", store, err)
			}
		}
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		f.dialect.QuoteIdent(table),
		strings.Join(quoted, ", "),
		strings.Join(placeholders, ", "),
	)

	inserted := 0
	err := f.run(ctx, "batch_insert", store, query, func(conn *sql.DB) error {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() {
			// Rollback if we don't commit - ignore errors as they're expected if transaction was committed
			_ = tx.Rollback()
		}()

		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		values := make([]any, len(columns))
		for _, record := range records {
			for i, col := range columns {
				values[i] = record[col]
			}
			if _, err := stmt.ExecContext(ctx, values...); err != nil {
				return fmt.Errorf("failed to insert record: %w", err)
			}
			inserted++
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
