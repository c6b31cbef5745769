package facade

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/bgunnarsson/sqlfacade/internal/db"
	"github.com/bgunnarsson/sqlfacade/internal/db/sqlite"
	"github.com/bgunnarsson/sqlfacade/internal/metrics"
)

const employeeColumns = "id INTEGER PRIMARY KEY, name TEXT, age INTEGER, salary REAL"

func newTestFacade(t *testing.T, opts ...Option) (*Facade, string) {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithLogger(quiet)}, opts...)
	return New(sqlite.New(), opts...), filepath.Join(t.TempDir(), "test.db")
}

func TestCreateTableThenExists(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()

	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	exists, err := f.TableExists(ctx, store, "t")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, f.DropTable(ctx, store, "t"))

	exists, err = f.TableExists(ctx, store, "t")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestCreateTableIsIdempotent(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()

	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	recs, err := f.ExecuteQuery(ctx, store, "SELECT COUNT(*) AS n FROM sqlite_master WHERE type = 'table' AND name = 't'")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, db.Int(1), recs[0]["n"])
}

func TestDropMissingTableIsNoop(t *testing.T) {
	f, store := newTestFacade(t)

	assert.NoError(t, f.DropTable(context.Background(), store, "never_created"))
}

func TestTableExistsOnFreshStore(t *testing.T) {
	f, store := newTestFacade(t)

	exists, err := f.TableExists(context.Background(), store, "t")
	require.NoError(t, err)
	assert.False(t, exists)

	_, statErr := os.Stat(store)
	assert.NoError(t, statErr, "store file should be created on first connection")
}

func TestEmptyTable(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	exists, err := f.RecordsExist(ctx, store, "t")
	require.NoError(t, err)
	assert.False(t, exists)

	count, err := f.RecordCount(ctx, store, "t")
	require.NoError(t, err)
	assert.Zero(t, count)

	recs, err := f.ReadRecords(ctx, store, "t", "*")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	recs, err = f.ExecuteQuery(ctx, store, "SELECT * FROM t")
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)
}

func TestInsertAndReadRoundTrip(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "1, 'John Doe', 30, 1000.50"))

	want := db.Record{
		"id":     db.Int(1),
		"name":   db.Text("John Doe"),
		"age":    db.Int(30),
		"salary": db.Real(1000.50),
	}

	recs, err := f.ReadRecords(ctx, store, "t", "*")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, want, recs[0])

	recs, err = f.ExecuteQuery(ctx, store, "SELECT * FROM t WHERE id = 1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, want, recs[0])

	salary, ok := recs[0]["salary"].AsReal()
	assert.True(t, ok)
	assert.InDelta(t, 1000.50, salary, 1e-9)
}

func TestDateColumnsRoundTripAsStored(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "e", "id INTEGER, at DATETIME, d DATE, ts TIMESTAMP, b BLOB"))
	require.NoError(t, f.InsertRecord(ctx, store, "e", "1, '2024-01-01 10:00:00', '2024-01-01', '2024-03-05 07:08:09.5', x'00ff'"))

	recs, err := f.ReadRecords(ctx, store, "e", "*")
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.Equal(t, db.Record{
		"id": db.Int(1),
		"at": db.Text("2024-01-01 10:00:00"),
		"d":  db.Text("2024-01-01"),
		"ts": db.Text("2024-03-05 07:08:09.5"),
		"b":  db.Text("0x00ff"),
	}, recs[0])

	hits, err := f.ExecuteQuery(ctx, store, "SELECT id FROM e WHERE at = ? AND d = ?", "2024-01-01 10:00:00", "2024-01-01")
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestReadRecordsColumnSubset(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "1, 'John Doe', 30, 1000.50"))

	recs, err := f.ReadRecords(ctx, store, "t", "id, name")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, db.Record{"id": db.Int(1), "name": db.Text("John Doe")}, recs[0])
}

func TestReadRowsKeepsColumnOrder(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	f, store := newTestFacade(t, WithMetrics(m))
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "1, 'John Doe', 30, 1000.50"))

	rows, err := f.ReadRows(ctx, store, "t", "name, id")
	require.NoError(t, err)
	require.Len(t, rows.Columns, 2)
	assert.Equal(t, "name", rows.Columns[0].Name)
	assert.Equal(t, "id", rows.Columns[1].Name)
	assert.Equal(t, []db.Row{{db.Text("John Doe"), db.Int(1)}}, rows.Data)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("read_records", "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Operations().WithLabelValues("query_rows", "ok")))
}

func TestNullValues(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "2, NULL, NULL, NULL"))

	recs, err := f.ReadRecords(ctx, store, "t", "*")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0]["name"].IsNull())
	assert.True(t, recs[0]["salary"].IsNull())
	assert.Equal(t, db.Int(2), recs[0]["id"])
}

func TestBooleanColumnsReadAsBool(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "flags", "id INTEGER PRIMARY KEY, enabled BOOLEAN"))
	require.NoError(t, f.InsertRecord(ctx, store, "flags", "1, 1"))
	require.NoError(t, f.InsertRecord(ctx, store, "flags", "2, 0"))

	recs, err := f.ExecuteQuery(ctx, store, "SELECT enabled FROM flags ORDER BY id")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, db.Bool(true), recs[0]["enabled"])
	assert.Equal(t, db.Bool(false), recs[1]["enabled"])
}

func TestRecordsExistWhere(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "1, 'John Doe', 30, 1000.50"))

	exists, err := f.RecordsExistWhere(ctx, store, "t", "id = 1")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = f.RecordsExistWhere(ctx, store, "t", "id = 2")
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = f.RecordsExistWhere(ctx, store, "t", "  ")
	require.NoError(t, err)
	assert.True(t, exists, "blank where should probe every row")
}

func TestCountAccuracyAndDeleteAll(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	const n = 5
	for i := 1; i <= n; i++ {
		before, err := f.RecordCount(ctx, store, "t")
		require.NoError(t, err)

		require.NoError(t, f.InsertRecord(ctx, store, "t", fmt.Sprintf("%d, 'emp%d', %d, %d.25", i, i, 20+i, 1000*i)))

		after, err := f.RecordCount(ctx, store, "t")
		require.NoError(t, err)
		assert.Equal(t, before+1, after)
	}

	deleted, err := f.DeleteRecords(ctx, store, "t", "")
	require.NoError(t, err)
	assert.EqualValues(t, n, deleted)

	count, err := f.RecordCount(ctx, store, "t")
	require.NoError(t, err)
	assert.Zero(t, count)

	exists, err := f.RecordsExist(ctx, store, "t")
	require.NoError(t, err)
	assert.False(t, exists)

	tableExists, err := f.TableExists(ctx, store, "t")
	require.NoError(t, err)
	assert.True(t, tableExists)
}

func TestUpdateAndDeleteWithWhere(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "1, 'John Doe', 30, 1000.50"))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "2, 'Mary Major', 41, 2000"))

	updated, err := f.UpdateRecords(ctx, store, "t", "name = 'Jane Doe'", "id = 1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	recs, err := f.ExecuteQuery(ctx, store, "SELECT name FROM t WHERE id = 1")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, db.Text("Jane Doe"), recs[0]["name"])

	updated, err = f.UpdateRecords(ctx, store, "t", "age = age + 1", "")
	require.NoError(t, err)
	assert.EqualValues(t, 2, updated)

	deleted, err := f.DeleteRecords(ctx, store, "t", "id = 2")
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	recs, err = f.ReadRecords(ctx, store, "t", "id, age")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, db.Record{"id": db.Int(1), "age": db.Int(31)}, recs[0])
}

func TestExecuteSQLWithArgs(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	res, err := f.ExecuteSQL(ctx, store, "INSERT INTO t (id, name) VALUES (?, ?)", 7, "Bound")
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.RowsAffected)
	assert.EqualValues(t, 7, res.LastInsertID)

	recs, err := f.ExecuteQuery(ctx, store, "SELECT name FROM t WHERE id = ?", 7)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, db.Text("Bound"), recs[0]["name"])
}

func TestInsertRowBindsValues(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	hostile := "Robert'); DROP TABLE t;--"
	require.NoError(t, f.InsertRow(ctx, store, "t", map[string]any{
		"id":     1,
		"name":   hostile,
		"age":    30,
		"salary": 1000.5,
	}))

	exists, err := f.TableExists(ctx, store, "t")
	require.NoError(t, err)
	assert.True(t, exists)

	recs, err := f.ReadRecords(ctx, store, "t", "name")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, db.Text(hostile), recs[0]["name"])
}

func TestBatchInsert(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	n, err := f.BatchInsert(ctx, store, "t", []map[string]any{
		{"id": 1, "name": "foo", "age": 42},
		{"id": 2, "name": "bar"},
		{"id": 3, "name": "baz", "age": 7},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	count, err := f.RecordCount(ctx, store, "t")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	recs, err := f.ExecuteQuery(ctx, store, "SELECT age FROM t WHERE id = 2")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.True(t, recs[0]["age"].IsNull())
}

func TestBatchInsertRejectsUnknownColumn(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	_, err := f.BatchInsert(ctx, store, "t", []map[string]any{
		{"id": 1},
		{"id": 2, "nickname": "x"},
	})
	require.Error(t, err)
	assert.True(t, db.IsDataAccessError(err))

	count, err := f.RecordCount(ctx, store, "t")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestBatchInsertRollsBackOnFailure(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	_, err := f.BatchInsert(ctx, store, "t", []map[string]any{
		{"id": 1, "name": "first"},
		{"id": 1, "name": "duplicate"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE")

	count, err := f.RecordCount(ctx, store, "t")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListAndDescribeTables(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "zeta", "id INTEGER"))
	require.NoError(t, f.CreateTable(ctx, store, "Alpha", employeeColumns))

	tables, err := f.ListTables(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "zeta"}, tables)

	cols, err := f.DescribeTable(ctx, store, "Alpha")
	require.NoError(t, err)
	assert.Equal(t, []db.Column{
		{Name: "id", Type: "INTEGER"},
		{Name: "name", Type: "TEXT"},
		{Name: "age", Type: "INTEGER"},
		{Name: "salary", Type: "REAL"},
	}, cols)

	cols, err = f.DescribeTable(ctx, store, "missing")
	require.NoError(t, err)
	assert.Empty(t, cols)
}

func TestOpenFailureIsDataAccessError(t *testing.T) {
	f, _ := newTestFacade(t)
	store := filepath.Join(t.TempDir(), "no", "such", "dir", "test.db")

	err := f.CreateTable(context.Background(), store, "t", employeeColumns)
	require.Error(t, err)

	var dae *db.DataAccessError
	require.True(t, errors.As(err, &dae))
	assert.Equal(t, "create_table", dae.Op)
	assert.Equal(t, store, dae.Store)
}

func TestEngineErrorsPassThrough(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()

	_, err := f.ExecuteSQL(ctx, store, "CREATE TABL broken (id INTEGER)")
	require.Error(t, err)
	assert.True(t, db.IsDataAccessError(err))
	assert.Contains(t, err.Error(), "syntax error")

	_, err = f.ReadRecords(ctx, store, "missing", "*")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such table")

	_, err = f.RecordCount(ctx, store, "missing")
	require.Error(t, err)
	assert.True(t, db.IsDataAccessError(err))

	_, err = f.RecordsExist(ctx, store, "missing")
	require.Error(t, err)
}

func TestCancelledContext(t *testing.T) {
	f, store := newTestFacade(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.RecordCount(ctx, store, "t")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenReturnsUsableHandle(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()

	conn, err := f.Open(ctx, store)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	_, err = conn.ExecContext(ctx, "CREATE TABLE direct (id INTEGER)")
	require.NoError(t, err)

	exists, err := f.TableExists(ctx, store, "DIRECT")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestConcurrentWriters(t *testing.T) {
	f, store := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))

	const workers, perWorker = 8, 5
	var g errgroup.Group
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				id := w*perWorker + i + 1
				if err := f.InsertRecord(ctx, store, "t", fmt.Sprintf("%d, 'w%d', %d, 1.5", id, w, i)); err != nil {
					return err
				}
				if _, err := f.RecordsExistWhere(ctx, store, "t", fmt.Sprintf("id = %d", id)); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	count, err := f.RecordCount(ctx, store, "t")
	require.NoError(t, err)
	assert.EqualValues(t, workers*perWorker, count)
}

func TestMetricsTrackCallsAndRelease(t *testing.T) {
	m, err := metrics.New(prometheus.NewRegistry())
	require.NoError(t, err)

	f, store := newTestFacade(t, WithMetrics(m))
	ctx := context.Background()

	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	require.NoError(t, f.InsertRecord(ctx, store, "t", "1, 'John Doe', 30, 1000.50"))
	_, err = f.ReadRecords(ctx, store, "missing", "*")
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("create_table", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("insert_record", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations().WithLabelValues("read_records", "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.OpenConnections()), "every connection should be released")
}

func TestDebugLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	f, store := newTestFacade(t, WithLogger(logger))
	ctx := context.Background()

	require.NoError(t, f.CreateTable(ctx, store, "t", employeeColumns))
	_, err := f.ExecuteSQL(ctx, store, "NOT SQL")
	require.Error(t, err)

	out := buf.String()
	assert.Contains(t, out, "Statement executed")
	assert.Contains(t, out, "op=create_table")
	assert.Contains(t, out, "Statement failed")
	assert.Contains(t, out, "op=execute_sql")
}
