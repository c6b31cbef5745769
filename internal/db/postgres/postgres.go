package postgres

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx stdlib driver

	"github.com/bgunnarsson/sqlfacade/internal/db"
)

// Dialect treats the store identifier as a pgx connection string.
type Dialect struct{}

func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return "postgres" }

func (d *Dialect) DriverName(string) string { return "pgx" }

func (d *Dialect) DSN(store string) (string, error) {
	if store == "" {
		return "", fmt.Errorf("empty postgres DSN")
	}
	return store, nil
}

func (d *Dialect) CreateTableSQL(table, columns string) string {
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s);", table, columns)
}

func (d *Dialect) DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
}

// TableExistsSQL accepts either "table" or "schema.table"; an unqualified
// name is looked up on the search path.
func (d *Dialect) TableExistsSQL() string {
	return `
SELECT 1
FROM information_schema.tables
WHERE (table_schema || '.' || table_name = $1::text
       OR (table_name = $1::text AND table_schema::name = ANY (current_schemas(false))))
LIMIT 1;
`
}

func (d *Dialect) ListTablesSQL() string {
	return `
SELECT table_schema || '.' || table_name AS name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name;
`
}

// ColumnsSQL accepts either "table" or "schema.table". An unqualified name
// resolves to the first schema on the search path that has it, the same
// lookup TableExistsSQL uses.
func (d *Dialect) ColumnsSQL(table string) (string, []any) {
	const q = `
SELECT c.column_name, c.data_type
FROM information_schema.columns c
WHERE c.table_schema || '.' || c.table_name = $1::text
   OR (c.table_name = $1::text AND c.table_schema::name = (
        SELECT p.nspname
        FROM unnest(current_schemas(false)) WITH ORDINALITY AS p(nspname, pos)
        WHERE EXISTS (
            SELECT 1
            FROM information_schema.tables t
            WHERE t.table_schema::name = p.nspname
              AND t.table_name = $1::text
        )
        ORDER BY p.pos
        LIMIT 1))
ORDER BY c.ordinal_position;
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

func (d *Dialect) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (d *Dialect) QuoteIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}

func (d *Dialect) Convert(v any, dbType string) db.Value {
	return db.FromDriver(v, dbType)
}
