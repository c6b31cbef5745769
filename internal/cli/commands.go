package cli

import (
	"fmt"

	"github.com/bgunnarsson/sqlfacade/internal/app"
	"github.com/bgunnarsson/sqlfacade/internal/db"
	"github.com/bgunnarsson/sqlfacade/internal/print"
)

type TablesCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
}

type DescribeCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
}

type CreateTableCmd struct {
	Store   string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table   string `arg:"" help:"Table name"`
	Columns string `arg:"" help:"Column definitions, e.g. \"id INTEGER PRIMARY KEY, name TEXT\""`
}

type DropTableCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
}

type TableExistsCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
}

type InsertCmd struct {
	Store  string            `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table  string            `arg:"" help:"Table name"`
	Values string            `arg:"" optional:"" help:"Comma-separated SQL literals in column order, e.g. \"1, 'John Doe'\""`
	Bind   map[string]string `help:"Bind column values as parameters instead of literal VALUES text" placeholder:"COL=VALUE;..."`
}

type UpdateCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
	Set   string `arg:"" help:"SET clause, e.g. \"name = 'Jane Doe'\""`
	Where string `arg:"" optional:"" help:"WHERE clause; empty updates every row"`
}

type DeleteCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
	Where string `arg:"" optional:"" help:"WHERE clause; empty deletes every row"`
}

type ExecCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	SQL   string `arg:"" help:"Statement to execute"`
}

type ReadCmd struct {
	Store   string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table   string `arg:"" help:"Table name"`
	Columns string `arg:"" optional:"" default:"*" help:"Columns to select"`
}

type QueryCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	SQL   string `arg:"" optional:"" help:"Query to run; lists tables when empty and stdout is not a terminal"`
}

type ExistsCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
	Where string `arg:"" optional:"" help:"Optional WHERE clause"`
}

type CountCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
	Table string `arg:"" help:"Table name"`
}

type ShellCmd struct {
	Store string `arg:"" help:"Store file path (or DSN for server drivers)"`
}

func (c *TablesCmd) Run(rc *runContext) error {
	tables, err := rc.facade.ListTables(rc.ctx, c.Store)
	if err != nil {
		return err
	}
	if rc.format == app.FormatJSON {
		return rc.emit(tables)
	}
	for _, t := range tables {
		if _, err := fmt.Fprintln(rc.out, t); err != nil {
			return err
		}
	}
	return nil
}

func (c *DescribeCmd) Run(rc *runContext) error {
	cols, err := rc.facade.DescribeTable(rc.ctx, c.Store, c.Table)
	if err != nil {
		return err
	}
	if len(cols) == 0 {
		return fmt.Errorf("table %q not found", c.Table)
	}

	rows := &db.Rows{Columns: []db.Column{{Name: "name"}, {Name: "type"}}}
	for _, col := range cols {
		rows.Data = append(rows.Data, db.Row{db.Text(col.Name), db.Text(col.Type)})
	}
	return rc.render(rows)
}

func (c *CreateTableCmd) Run(rc *runContext) error {
	return rc.facade.CreateTable(rc.ctx, c.Store, c.Table, c.Columns)
}

func (c *DropTableCmd) Run(rc *runContext) error {
	return rc.facade.DropTable(rc.ctx, c.Store, c.Table)
}

func (c *TableExistsCmd) Run(rc *runContext) error {
	ok, err := rc.facade.TableExists(rc.ctx, c.Store, c.Table)
	if err != nil {
		return err
	}
	return rc.emit(ok)
}

func (c *InsertCmd) Run(rc *runContext) error {
	switch {
	case len(c.Bind) > 0 && c.Values != "":
		return fmt.Errorf("use either VALUES text or --bind, not both")
	case len(c.Bind) > 0:
		row := make(map[string]any, len(c.Bind))
		for k, v := range c.Bind {
			row[k] = v
		}
		return rc.facade.InsertRow(rc.ctx, c.Store, c.Table, row)
	case c.Values != "":
		return rc.facade.InsertRecord(rc.ctx, c.Store, c.Table, c.Values)
	default:
		return fmt.Errorf("nothing to insert: give VALUES text or --bind")
	}
}

func (c *UpdateCmd) Run(rc *runContext) error {
	n, err := rc.facade.UpdateRecords(rc.ctx, c.Store, c.Table, c.Set, c.Where)
	if err != nil {
		return err
	}
	rc.logger.Info("Rows updated", "table", c.Table, "count", n)
	return rc.emit(n)
}

func (c *DeleteCmd) Run(rc *runContext) error {
	n, err := rc.facade.DeleteRecords(rc.ctx, c.Store, c.Table, c.Where)
	if err != nil {
		return err
	}
	rc.logger.Info("Rows deleted", "table", c.Table, "count", n)
	return rc.emit(n)
}

func (c *ExecCmd) Run(rc *runContext) error {
	res, err := rc.facade.ExecuteSQL(rc.ctx, c.Store, c.SQL)
	if err != nil {
		return err
	}
	return rc.emit(res.RowsAffected)
}

func (c *ReadCmd) Run(rc *runContext) error {
	rows, err := rc.facade.ReadRows(rc.ctx, c.Store, c.Table, c.Columns)
	if err != nil {
		return err
	}
	return rc.render(rows)
}

func (c *QueryCmd) Run(rc *runContext) error {
	if c.SQL == "" && rc.tty {
		return app.RunInteractive(rc.ctx, rc.facade, c.Store)
	}
	return app.RunNonInteractive(rc.ctx, rc.out, rc.facade, c.Store, c.SQL, rc.format, rc.maxWidth)
}

func (c *ExistsCmd) Run(rc *runContext) error {
	var (
		ok  bool
		err error
	)
	if c.Where == "" {
		ok, err = rc.facade.RecordsExist(rc.ctx, c.Store, c.Table)
	} else {
		ok, err = rc.facade.RecordsExistWhere(rc.ctx, c.Store, c.Table, c.Where)
	}
	if err != nil {
		return err
	}
	return rc.emit(ok)
}

func (c *CountCmd) Run(rc *runContext) error {
	n, err := rc.facade.RecordCount(rc.ctx, c.Store, c.Table)
	if err != nil {
		return err
	}
	return rc.emit(n)
}

func (c *ShellCmd) Run(rc *runContext) error {
	return app.RunInteractive(rc.ctx, rc.facade, c.Store)
}

func (rc *runContext) render(rows *db.Rows) error {
	if rc.format == app.FormatJSON {
		return print.RenderJSON(rc.out, rows.Records())
	}
	print.RenderTable(rc.out, rows, print.Options{MaxWidth: rc.maxWidth})
	return nil
}
