package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bgunnarsson/sqlfacade/internal/db"
	"github.com/bgunnarsson/sqlfacade/internal/facade"
	"github.com/bgunnarsson/sqlfacade/internal/print"
)

const helpText = `Commands
  .tables           List tables in the store
  .describe <name>  Show the columns of a table
  .help             Toggle this help
  .quit             Quit (also Esc / Ctrl+C)

Keys
  Enter             Run SQL in the input
  Up / Down         Walk query history`

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#cba6f7"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6c7086"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#a6e3a1"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#f38ba8"))
	tablesStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89b4fa"))
)

type tablesMsg struct {
	tables []string
	err    error
}

type queryResultMsg struct {
	query   string
	rows    *db.Rows
	elapsed time.Duration
	err     error
}

type model struct {
	ctx    context.Context
	facade *facade.Facade
	store  string

	input   textinput.Model
	tables  []string
	result  string
	status  string
	failed  bool
	help    bool
	width   int
	history []string
	histIdx int
}

// Run starts the interactive shell against store.
func Run(ctx context.Context, f *facade.Facade, store string) error {
	p := tea.NewProgram(newModel(ctx, f, store), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func newModel(ctx context.Context, f *facade.Facade, store string) model {
	in := textinput.New()
	in.Prompt = "sql> "
	in.Placeholder = "SELECT * FROM ..."
	in.Focus()

	return model{
		ctx:    ctx,
		facade: f,
		store:  store,
		input:  in,
		status: "Loading tables…",
		width:  80,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.loadTables())
}

func (m model) loadTables() tea.Cmd {
	return func() tea.Msg {
		tables, err := m.facade.ListTables(m.ctx, m.store)
		return tablesMsg{tables: tables, err: err}
	}
}

func (m model) runQuery(query string, args ...any) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		rows, err := m.facade.QueryRows(m.ctx, m.store, query, args...)
		return queryResultMsg{query: query, rows: rows, elapsed: time.Since(start), err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tablesMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Error loading tables: %v", msg.err), true)
			return m, nil
		}
		m.tables = msg.tables
		if len(m.tables) == 0 {
			m.setStatus("No tables found.", false)
		} else {
			m.setStatus("Tables loaded. Type a query below.", false)
		}
		return m, nil

	case queryResultMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Query error: %v", msg.err), true)
			return m, nil
		}
		m.result = m.renderRows(msg.rows)
		if len(msg.rows.Columns) == 0 {
			m.setStatus(fmt.Sprintf("Statement OK (%s)", msg.elapsed.Truncate(time.Millisecond)), false)
			// DDL may have changed the table list
			return m, m.loadTables()
		}
		m.setStatus(fmt.Sprintf("Query OK (%d rows, %s)", len(msg.rows.Data), msg.elapsed.Truncate(time.Millisecond)), false)
		return m, nil

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		case tea.KeyUp:
			m.walkHistory(-1)
			return m, nil
		case tea.KeyDown:
			m.walkHistory(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	line := strings.TrimSpace(m.input.Value())
	m.input.Reset()
	if line == "" {
		return m, nil
	}

	m.history = append(m.history, line)
	m.histIdx = len(m.history)

	switch {
	case line == ".quit":
		return m, tea.Quit
	case line == ".help":
		m.help = !m.help
		return m, nil
	case line == ".tables":
		m.setStatus("Loading tables…", false)
		return m, m.loadTables()
	case strings.HasPrefix(line, ".describe"):
		name := strings.TrimSpace(strings.TrimPrefix(line, ".describe"))
		if name == "" {
			m.setStatus("usage: .describe <table>", true)
			return m, nil
		}
		query, args := m.facade.Dialect().ColumnsSQL(name)
		m.setStatus("Describing "+name+"…", false)
		return m, m.runQuery(query, args...)
	case strings.HasPrefix(line, "."):
		m.setStatus(fmt.Sprintf("Unknown command %q (try .help)", line), true)
		return m, nil
	}

	m.setStatus("Running query… "+print.Truncate(line, 60), false)
	return m, m.runQuery(line)
}

func (m *model) walkHistory(step int) {
	if len(m.history) == 0 {
		return
	}
	m.histIdx = max(0, min(len(m.history), m.histIdx+step))
	if m.histIdx == len(m.history) {
		m.input.SetValue("")
		return
	}
	m.input.SetValue(m.history[m.histIdx])
	m.input.CursorEnd()
}

func (m *model) setStatus(msg string, failed bool) {
	m.status = msg
	m.failed = failed
}

func (m model) renderRows(rows *db.Rows) string {
	if len(rows.Columns) == 0 {
		return ""
	}
	var b strings.Builder
	print.RenderTable(&b, rows, print.Options{MaxWidth: max(8, m.width/max(1, len(rows.Columns))-4)})
	return b.String()
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("sqlfacade"))
	b.WriteString(dimStyle.Render(" " + m.store))
	b.WriteString("\n")

	if len(m.tables) > 0 {
		b.WriteString(tablesStyle.Render("tables: " + strings.Join(m.tables, ", ")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.help {
		b.WriteString(helpText)
		b.WriteString("\n\n")
	} else if m.result != "" {
		b.WriteString(m.result)
		b.WriteString("\n")
	}

	if m.failed {
		b.WriteString(errStyle.Render(m.status))
	} else {
		b.WriteString(okStyle.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(".help for commands, Esc to quit"))
	return b.String()
}
