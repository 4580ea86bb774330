package store

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"sentinel/internal/platform/store/pg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgxFakeRow implements pgx.Row
type pgxFakeRow struct {
	scan func(dest ...any) error
}

func (r *pgxFakeRow) Scan(dest ...any) error {
	if r.scan != nil {
		return r.scan(dest...)
	}
	return nil
}

// pgxFakeRows implements pgx.Rows over an in-memory table
type pgxFakeRows struct {
	fields []pgconn.FieldDescription
	data   [][]any
	idx    int
	closed bool
}

func newPgxFakeRows(cols []string, data [][]any) *pgxFakeRows {
	fds := make([]pgconn.FieldDescription, len(cols))
	for i, c := range cols {
		fds[i] = pgconn.FieldDescription{Name: c}
	}
	return &pgxFakeRows{fields: fds, data: data, idx: -1}
}

func (r *pgxFakeRows) Conn() *pgx.Conn                              { return nil }
func (r *pgxFakeRows) Close()                                       { r.closed = true }
func (r *pgxFakeRows) Err() error                                   { return nil }
func (r *pgxFakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *pgxFakeRows) FieldDescriptions() []pgconn.FieldDescription { return r.fields }
func (r *pgxFakeRows) RawValues() [][]byte                          { return nil }
func (r *pgxFakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}
func (r *pgxFakeRows) Values() ([]any, error) { return r.data[r.idx], nil }
func (r *pgxFakeRows) Scan(dest ...any) error {
	row := r.data[r.idx]
	if len(row) != len(dest) {
		return errors.New("dest len mismatch")
	}
	for i := range dest {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(row[i]))
	}
	return nil
}

// fakeQuerier implements pgxQuerier
type fakeQuerier struct {
	execErr error
	rows    *pgxFakeRows
	rowErr  error
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag("INSERT 0 3"), f.execErr
}

func (f *fakeQuerier) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return f.rows, nil
}

func (f *fakeQuerier) QueryRow(context.Context, string, ...any) pgx.Row {
	return &pgxFakeRow{scan: func(dest ...any) error {
		if f.rowErr != nil {
			return f.rowErr
		}
		*(dest[0].(*string)) = "grid"
		return nil
	}}
}

type recTracer struct{ events []pg.QueryEvent }

func (r *recTracer) OnQuery(_ context.Context, ev pg.QueryEvent) { r.events = append(r.events, ev) }

func TestTraced_ExecReportsTagAndError(t *testing.T) {
	tr := &recTracer{}
	boom := errors.New("boom")
	q := traced{q: &fakeQuerier{execErr: boom}, tracer: tr, slowUS: 0}

	ct, err := q.Exec(context.Background(), "INSERT INTO specs (name) VALUES ($1)", "grid")
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if ct.RowsAffected() != 3 || ct.String() != "INSERT 0 3" {
		t.Fatalf("tag = %q/%d", ct.String(), ct.RowsAffected())
	}
	if len(tr.events) != 1 || !errors.Is(tr.events[0].Err, boom) {
		t.Fatalf("events = %+v", tr.events)
	}
	if !tr.events[0].Slow {
		t.Fatalf("threshold 0 should mark every statement slow")
	}
}

func TestTraced_QueryRowEmitsAfterScan(t *testing.T) {
	tr := &recTracer{}
	q := traced{q: &fakeQuerier{}, tracer: tr, slowUS: -1}

	row := q.QueryRow(context.Background(), "SELECT name FROM specs LIMIT 1")
	if len(tr.events) != 0 {
		t.Fatalf("emitted before Scan")
	}
	name, err := Scalar[string](context.Background(), q, "SELECT name FROM specs LIMIT 1")
	if err != nil || name != "grid" {
		t.Fatalf("Scalar = %q, %v", name, err)
	}
	var again string
	if err := row.Scan(&again); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(tr.events) != 2 || tr.events[1].Slow {
		t.Fatalf("events = %+v", tr.events)
	}
}

func TestTraced_NilTracerIsQuiet(t *testing.T) {
	q := traced{q: &fakeQuerier{rowErr: errors.New("no rows")}}
	if _, err := Scalar[string](context.Background(), q, "SELECT 1"); err == nil {
		t.Fatalf("expected scan error")
	}
}

func TestMany_MapsRowsAndCloses(t *testing.T) {
	fr := newPgxFakeRows([]string{"id", "name"}, [][]any{{int64(1), "grid"}, {int64(2), "flexbox"}})
	q := traced{q: &fakeQuerier{rows: fr}}

	type spec struct {
		ID   int64
		Name string
	}
	got, err := Many(context.Background(), q, func(r Row) (spec, error) {
		var s spec
		return s, r.Scan(&s.ID, &s.Name)
	}, "SELECT id, name FROM specs")
	if err != nil {
		t.Fatalf("Many: %v", err)
	}
	want := []spec{{1, "grid"}, {2, "flexbox"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Many = %+v, want %+v", got, want)
	}
	if !fr.closed {
		t.Fatalf("rows not closed")
	}
}

func TestRows_Columns(t *testing.T) {
	rs := rows{r: newPgxFakeRows([]string{"sha", "url"}, nil)}
	if cols := rs.Columns(); !reflect.DeepEqual(cols, []string{"sha", "url"}) {
		t.Fatalf("Columns = %v", cols)
	}
}

func TestPGAdapter_NilPing(t *testing.T) {
	var a *pgAdapter
	if err := a.Ping(context.Background()); err == nil {
		t.Fatalf("nil adapter should not ping")
	}
}
