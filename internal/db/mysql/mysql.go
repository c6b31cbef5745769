package mysql

import (
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/bgunnarsson/sqlfacade/internal/db"
)

// Dialect treats the store identifier as a go-sql-driver DSN,
// e.g. "user:pass@tcp(localhost:3306)/app".
type Dialect struct{}

func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return "mysql" }

func (d *Dialect) DriverName(string) string { return "mysql" }

func (d *Dialect) DSN(store string) (string, error) {
	if store == "" {
		return "", fmt.Errorf("empty mysql DSN")
	}
	return store, nil
}

func (d *Dialect) CreateTableSQL(table, columns string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", table, columns)
}

func (d *Dialect) DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
}

func (d *Dialect) TableExistsSQL() string {
	return `
SELECT 1
FROM information_schema.tables
WHERE table_schema = DATABASE()
  AND table_name = ?
LIMIT 1;
`
}

func (d *Dialect) ListTablesSQL() string {
	return `
SELECT table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema = DATABASE()
ORDER BY table_name;
`
}

func (d *Dialect) ColumnsSQL(table string) (string, []any) {
	const q = `
SELECT column_name, data_type
FROM information_schema.columns
WHERE table_schema = DATABASE()
  AND table_name = ?
ORDER BY ordinal_position;
`
	return q, []any{table}
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

func (d *Dialect) QuoteIdent(id string) string {
	return "`" + strings.ReplaceAll(id, "`", "``") + "`"
}

// Convert relies on db.FromDriver, which already turns the []byte MySQL
// returns for TEXT/VARCHAR into text and formats time.Time.
func (d *Dialect) Convert(v any, dbType string) db.Value {
	return db.FromDriver(v, dbType)
}
