package print

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bgunnarsson/sqlfacade/internal/db"
)

type Options struct {
	MaxWidth int // max width for each column, 0 = default (40)
}

func RenderTable(w io.Writer, rows *db.Rows, opts Options) {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = 40
	}

	cols := len(rows.Columns)
	if cols == 0 {
		fmt.Fprintln(w, "(no columns)")
		return
	}

	// compute widths
	widths := make([]int, cols)
	for i, col := range rows.Columns {
		widths[i] = min(RuneLen(col.Name), opts.MaxWidth)
	}

	for _, r := range rows.Data {
		for i, cell := range r {
			if i >= cols {
				break
			}
			if l := min(RuneLen(FormatValue(cell)), opts.MaxWidth); l > widths[i] {
				widths[i] = l
			}
		}
	}

	// helpers
	sep := func(ch string) string {
		var b strings.Builder
		b.WriteString("+")
		for i := range widths {
			b.WriteString(strings.Repeat(ch, widths[i]+2))
			b.WriteString("+")
		}
		return b.String()
	}

	writeRow := func(cells []string) {
		var b strings.Builder
		b.WriteString("|")
		for i, c := range cells {
			cut := Truncate(c, widths[i])
			b.WriteString(" ")
			if LooksNumeric(c) {
				b.WriteString(PadLeft(cut, widths[i]))
			} else {
				b.WriteString(PadRight(cut, widths[i]))
			}
			b.WriteString(" |")
		}
		fmt.Fprintln(w, b.String())
	}

	// header
	fmt.Fprintln(w, sep("-"))
	header := make([]string, cols)
	for i, col := range rows.Columns {
		header[i] = col.Name
	}
	writeRow(header)
	fmt.Fprintln(w, sep("="))

	// data
	for _, r := range rows.Data {
		cells := make([]string, cols)
		for i := range cells {
			if i < len(r) {
				cells[i] = FormatValue(r[i])
			}
		}
		writeRow(cells)
	}
	fmt.Fprintln(w, sep("-"))
	fmt.Fprintf(w, "(%d %s)\n", len(rows.Data), plural(len(rows.Data), "row", "rows"))
}

// RenderJSON writes records as an indented JSON array.
func RenderJSON(w io.Writer, records []db.Record) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(records)
}

// FormatValue renders a cell, replacing control characters so a value
// cannot break the table layout.
func FormatValue(v db.Value) string {
	s := v.String()
	if _, isText := v.AsText(); isText && !isPrintable(s) {
		return fmt.Sprintf("<binary %d bytes>", len(s))
	}
	return strings.NewReplacer("\n", "\\n", "\t", "\\t").Replace(s)
}

func isPrintable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			return false
		}
	}
	return true
}

// RuneLen counts runes so we don't under/over-pad UTF-8 text.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}

func PadRight(s string, width int) string {
	if n := RuneLen(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}

func PadLeft(s string, width int) string {
	if n := RuneLen(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

// Truncate shortens s to w runes, marking the cut with "...".
func Truncate(s string, w int) string {
	if RuneLen(s) <= w {
		return s
	}
	if w <= 3 {
		return truncateRunes(s, w)
	}
	return truncateRunes(s, w-3) + "..."
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func LooksNumeric(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	hasDigit := false
	for i, r := range s {
		if r == '+' || r == '-' {
			if i != 0 {
				return false
			}
			continue
		}
		if r == '.' || r == ',' {
			continue
		}
		if unicode.IsDigit(r) {
			hasDigit = true
			continue
		}
		return false
	}
	return hasDigit
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
