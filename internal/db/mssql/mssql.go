package mssql

import (
	"fmt"
	"strconv"
	"strings"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/azuread"

	"github.com/bgunnarsson/sqlfacade/internal/db"
)

// Dialect treats the store identifier as a go-mssqldb connection string.
type Dialect struct{}

func New() *Dialect { return &Dialect{} }

func (d *Dialect) Name() string { return "mssql" }

// DriverName picks the Azure AD driver (azuresql) when the DSN contains
// "fedauth=", so things like ActiveDirectoryInteractive / AzCli work.
func (d *Dialect) DriverName(store string) string {
	if strings.Contains(strings.ToLower(store), "fedauth=") {
		return azuread.DriverName
	}
	return "sqlserver"
}

func (d *Dialect) DSN(store string) (string, error) {
	if store == "" {
		return "", fmt.Errorf("empty mssql DSN")
	}
	return store, nil
}

// CreateTableSQL guards on OBJECT_ID since SQL Server has no
// CREATE TABLE IF NOT EXISTS.
func (d *Dialect) CreateTableSQL(table, columns string) string {
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s);",
		strings.ReplaceAll(table, "'", "''"), table, columns)
}

func (d *Dialect) DropTableSQL(table string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS %s;", table)
}

func (d *Dialect) TableExistsSQL() string {
	return `
SELECT TOP 1 1
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_NAME = @p1
   OR TABLE_SCHEMA + '.' + TABLE_NAME = @p1;
`
}

func (d *Dialect) ListTablesSQL() string {
	return `
SELECT TABLE_SCHEMA + '.' + TABLE_NAME AS name
FROM INFORMATION_SCHEMA.TABLES
WHERE TABLE_TYPE = 'BASE TABLE'
ORDER BY TABLE_SCHEMA, TABLE_NAME;
`
}

// ColumnsSQL accepts either "table" or "schema.table".
func (d *Dialect) ColumnsSQL(table string) (string, []any) {
	schema := "dbo"
	name := table
	if dot := strings.Index(table, "."); dot != -1 {
		schema = table[:dot]
		name = table[dot+1:]
	}

	const q = `
SELECT COLUMN_NAME, DATA_TYPE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = @p1
  AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION;
`
	return q, []any{schema, name}
}

func (d *Dialect) ExistsSQL(table, where string) string {
	if strings.TrimSpace(where) == "" {
		return fmt.Sprintf("SELECT TOP 1 1 FROM %s;", table)
	}
	return fmt.Sprintf("SELECT TOP 1 1 FROM %s WHERE %s;", table, where)
}

func (d *Dialect) CountSQL(table string) string {
	return fmt.Sprintf("SELECT COUNT(*) AS count FROM %s;", table)
}

func (d *Dialect) Placeholder(n int) string { return "@p" + strconv.Itoa(n) }

func (d *Dialect) QuoteIdent(id string) string {
	return "[" + strings.ReplaceAll(id, "]", "]]") + "]"
}

func (d *Dialect) Convert(v any, dbType string) db.Value {
	b, ok := v.([]byte)
	if !ok {
		return db.FromDriver(v, dbType)
	}

	// NEVER string() binary; it wrecks the table.
	switch strings.ToLower(dbType) {
	case "uniqueidentifier":
		return db.Text(formatUniqueIdentifier(b))
	case "varchar", "nvarchar", "char", "nchar", "text", "ntext":
		return db.Text(string(b))
	default:
		// safe hex representation for any other binary
		return db.Text(fmt.Sprintf("0x%x", b))
	}
}

func formatUniqueIdentifier(b []byte) string {
	if len(b) != 16 {
		return fmt.Sprintf("%x", b)
	}

	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		b[3], b[2], b[1], b[0],
		b[5], b[4],
		b[7], b[6],
		b[8], b[9],
		b[10], b[11], b[12], b[13], b[14], b[15],
	)
}
