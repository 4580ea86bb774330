package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"sentinel/internal/modkit/repokit"
	"sentinel/internal/services/tracker/domain"
)

type call struct {
	sql  string
	args []any
}

type tag int64

func (t tag) String() string      { return fmt.Sprintf("TAG %d", int64(t)) }
func (t tag) RowsAffected() int64 { return int64(t) }

type fakeRows struct {
	data [][]any
	i    int
}

func (r *fakeRows) Next() bool        { r.i++; return r.i <= len(r.data) }
func (r *fakeRows) Err() error        { return nil }
func (r *fakeRows) Close()            {}
func (r *fakeRows) Columns() []string { return nil }
func (r *fakeRows) Scan(dst ...any) error {
	return assign(r.data[r.i-1], dst)
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dst ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(r.vals, dst)
}

func assign(vals []any, dst []any) error {
	if len(vals) != len(dst) {
		return errors.New("scan arity")
	}
	for i, d := range dst {
		switch p := d.(type) {
		case *int64:
			*p = vals[i].(int64)
		case *string:
			*p = vals[i].(string)
		case *bool:
			*p = vals[i].(bool)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

// fakeDB emulates the handful of statements the repo issues
type fakeDB struct {
	mu     sync.Mutex
	calls  []call
	ids    map[string]int64
	shas   map[string]bool
	failOn string
	err    error
	txs    int
}

func newFakeDB(existing ...string) *fakeDB {
	db := &fakeDB{ids: map[string]int64{}, shas: map[string]bool{}}
	for _, s := range existing {
		db.shas[s] = true
	}
	return db
}

var _ repokit.TxRunner = (*fakeDB)(nil)

func (f *fakeDB) record(sql string, args []any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.failOn != "" && strings.Contains(sql, f.failOn) {
		return f.err
	}
	return nil
}

func (f *fakeDB) Tx(_ context.Context, fn func(q repokit.Queryer) error) error {
	f.mu.Lock()
	f.txs++
	f.mu.Unlock()
	return fn(f)
}

func (f *fakeDB) Exec(_ context.Context, sql string, args ...any) (repokit.CommandTag, error) {
	if err := f.record(sql, args); err != nil {
		return nil, err
	}
	return tag(1), nil
}

func (f *fakeDB) Query(_ context.Context, sql string, args ...any) (repokit.Rows, error) {
	if err := f.record(sql, args); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case strings.Contains(sql, "SELECT id, name FROM"):
		table := strings.Fields(sql[strings.Index(sql, "FROM"):])[1]
		var out [][]any
		for _, n := range args[0].([]string) {
			k := table + "/" + n
			id, ok := f.ids[k]
			if !ok {
				id = int64(len(f.ids) + 1)
				f.ids[k] = id
			}
			out = append(out, []any{id, n})
		}
		return &fakeRows{data: out}, nil
	case strings.Contains(sql, "INSERT INTO contributions"):
		var out [][]any
		for _, s := range args[0].([]string) {
			if f.shas[s] {
				continue
			}
			f.shas[s] = true
			out = append(out, []any{s})
		}
		return &fakeRows{data: out}, nil
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(_ context.Context, sql string, args ...any) repokit.Row {
	if err := f.record(sql, args); err != nil {
		return fakeRow{err: err}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeRow{vals: []any{f.shas[args[0].(string)]}}
}

func (f *fakeDB) sqls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.sql)
	}
	return out
}

func (f *fakeDB) find(substr string) (call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		if strings.Contains(c.sql, substr) {
			return c, true
		}
	}
	return call{}, false
}

type recMirror struct {
	mu      sync.Mutex
	batches [][]domain.Contribution
	err     error
}

func (m *recMirror) Append(_ context.Context, b []domain.Contribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, b)
	return m.err
}

type fakeColumnar struct {
	execs  []string
	table  string
	rows   [][]any
	err    error
	closed bool
}

func (f *fakeColumnar) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return f.err
}

func (f *fakeColumnar) Insert(_ context.Context, table string, rows [][]any) error {
	f.table = table
	f.rows = append(f.rows, rows...)
	return f.err
}

func (f *fakeColumnar) Query(context.Context, string, ...any) (repokit.Rows, error) {
	return &fakeRows{}, nil
}

func (f *fakeColumnar) Close() error { f.closed = true; return nil }
