package app

import (
	"context"
	"fmt"
	"io"

	"github.com/bgunnarsson/sqlfacade/internal/facade"
	"github.com/bgunnarsson/sqlfacade/internal/print"
)

type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// RunNonInteractive runs query against store and renders the result to w.
func RunNonInteractive(ctx context.Context, w io.Writer, f *facade.Facade, store, query string, format Format, maxWidth int) error {
	if query == "" {
		// default behaviour: list tables
		query = f.Dialect().ListTablesSQL()
	}

	rows, err := f.QueryRows(ctx, store, query)
	if err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		return print.RenderJSON(w, rows.Records())
	case "", FormatTable:
		print.RenderTable(w, rows, print.Options{MaxWidth: maxWidth})
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
