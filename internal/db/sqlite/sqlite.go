package sqlite

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite" // register driver

	"github.com/bgunnarsson/sqlfacade/internal/db"
)

// Dialect addresses one SQLite database file per store.
type Dialect struct {
	// BusyTimeout is how long the engine waits on a locked file before
	// failing the statement. Zero leaves SQLite's default (fail at once).
	BusyTimeout time.Duration
	ForeignKeys bool
	WAL         bool
}

func New() *Dialect {
	return &Dialect{
		BusyTimeout: 5 * time.Second,
		ForeignKeys: true,
	}
}

func (d *Dialect) Name() string { return "sqlite" }

func (d *Dialect) DriverName(string) string { return "sqlite" }

// DSN resolves the store path to an absolute file path and appends the
// connection pragmas understood by modernc.org/sqlite.
func (d *Dialect) DSN(store string) (string, error) {
	if strings.TrimSpace(store) == "" {
		return "", fmt.Errorf("empty sqlite path")
	}
	if strings.ContainsRune(store, '?') {
		return "", fmt.Errorf("sqlite path %q must not contain '?'", store)
	}

	path, err := filepath.Abs(store)
	if err != nil {
		return "", err
	}

	pragmas := []string{
		fmt.Sprintf("_pragma=busy_timeout(%d)", d.BusyTimeout.Milliseconds()),
	}
	if d.ForeignKeys {
		pragmas = append(pragmas, "_pragma=foreign_keys(1)")
	}
	if d.WAL {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}

	return path + "?" + strings.Join(pragmas, "&"), nil
}

func (d *Dialect) CreateTableSQL(table, columns string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", table, columns)
}

func (d *Dialect) DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
}

func (d *Dialect) TableExistsSQL() string {
	// Views count as tables, matching JDBC getTables with no type filter.
	return `
		SELECT 1
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name = ? COLLATE NOCASE
		LIMIT 1;
	`
}

func (d *Dialect) ListTablesSQL() string {
	// Use sqlite_master (works everywhere), include tables + views,
	// hide internal sqlite_% objects.
	return `
		SELECT name
		FROM sqlite_master
		WHERE type IN ('table', 'view')
		  AND name NOT LIKE 'sqlite_%'
		ORDER BY lower(name);
	`
}

func (d *Dialect) ColumnsSQL(table string) (string, []any) {
	return `SELECT name, type FROM pragma_table_info(?) ORDER BY cid;`, []any{table}
}

func (d *Dialect) ExistsSQL(table, where string) string {
	if strings.TrimSpace(where) == "" {
		return fmt.Sprintf("SELECT 1 FROM %s LIMIT 1;", table)
	}
	return fmt.Sprintf("SELECT 1 FROM %s WHERE %s LIMIT 1;", table, where)
}

func (d *Dialect) CountSQL(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) AS count FROM %s;", table)
}

func (d *Dialect) Placeholder(int) string { return "?" }

// very basic identifier quoting – enough for sqlite
func (d *Dialect) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

// Convert hands back what the file stores. The driver parses TEXT in
// DATE/DATETIME/TIMESTAMP columns into time.Time, so those are rendered in
// SQLite's own layout again; blobs that are not printable UTF-8 become 0x hex.
func (d *Dialect) Convert(v any, dbType string) db.Value {
	switch x := v.(type) {
	case time.Time:
		return db.Text(formatTime(x, dbType))
	case []byte:
		if !utf8.Valid(x) || bytes.IndexByte(x, 0) >= 0 {
			return db.Text(fmt.Sprintf("0x%x", x))
		}
	}
	return db.FromDriver(v, dbType)
}

func formatTime(t time.Time, dbType string) string {
	_, offset := t.Zone()
	midnight := t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
	if strings.EqualFold(strings.TrimSpace(dbType), "DATE") && midnight && offset == 0 {
		return t.Format(time.DateOnly)
	}

	layout := time.DateTime
	if t.Nanosecond() != 0 {
		layout += ".999999999"
	}
	if offset != 0 {
		layout += "-07:00"
	}
	return t.Format(layout)
}
