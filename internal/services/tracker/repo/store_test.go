package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	perr "sentinel/internal/platform/errors"
	kit "sentinel/internal/platform/testkit"
	"sentinel/internal/services/tracker/domain"

	"github.com/jackc/pgx/v5/pgconn"
)

func contribution(sha, spec string) domain.Contribution {
	return domain.Contribution{
		Sha:          sha,
		Author:       domain.Author{Name: "A. Person", Email: "A@X.org"},
		Organization: "X",
		Spec:         spec,
		Tracker:      domain.MailList,
		Date:         time.Date(2015, 1, 5, 10, 0, 0, 0, time.FixedZone("CET", 3600)),
		Message:      "[css-grid] fix gap",
		URL:          "https://lists.example/0001.html",
	}
}

func TestStoreAddBatch(t *testing.T) {
	db := newFakeDB("known")
	mirror := &recMirror{}
	s := NewStore(db, NewPG(), WithMirror(mirror), WithStatementTimeout(5*time.Second))

	n, err := s.AddBatch(context.Background(), []domain.Contribution{
		contribution("a", "grid"),
		contribution("a", "grid"),
		contribution("known", "grid"),
		contribution("b", "flexbox"),
	})
	if err != nil {
		t.Fatalf("AddBatch: %v", err)
	}
	if n != 2 {
		t.Fatalf("accepted = %d, want 2", n)
	}
	if db.txs != 1 {
		t.Fatalf("transactions = %d, want 1", db.txs)
	}

	sqls := db.sqls()
	if !strings.Contains(sqls[0], "SET LOCAL statement_timeout = 5000") {
		t.Fatalf("first statement = %q", sqls[0])
	}
	if !strings.Contains(sqls[1], "pg_advisory_xact_lock") {
		t.Fatalf("second statement = %q", sqls[1])
	}

	ins, ok := db.find("INSERT INTO contributions")
	if !ok {
		t.Fatalf("no insert issued")
	}
	if got := ins.args[0].([]string); len(got) != 3 {
		t.Fatalf("insert shas = %v, want deduped to 3", got)
	}
	dates := ins.args[5].([]time.Time)
	if dates[0].Location() != time.UTC {
		t.Fatalf("dates not UTC: %v", dates[0])
	}

	authors, _ := db.find("INSERT INTO authors")
	if got := authors.args[1].([]string); len(got) != 1 || got[0] != "a@x.org" {
		t.Fatalf("author emails = %v", got)
	}

	if len(mirror.batches) != 1 || len(mirror.batches[0]) != 2 {
		t.Fatalf("mirror batches = %+v", mirror.batches)
	}
	if mirror.batches[0][0].Sha != "a" || mirror.batches[0][1].Sha != "b" {
		t.Fatalf("mirror order = %+v", mirror.batches[0])
	}
}

func TestStoreAddBatchEmpty(t *testing.T) {
	db := newFakeDB()
	s := NewStore(db, NewPG())
	n, err := s.AddBatch(context.Background(), nil)
	if err != nil || n != 0 {
		t.Fatalf("AddBatch(nil) = %d, %v", n, err)
	}
	if db.txs != 0 {
		t.Fatalf("empty batch opened a transaction")
	}
}

func TestStoreAddBatchErrors(t *testing.T) {
	cases := []struct {
		name   string
		failOn string
		err    error
		want   perr.ErrorCode
		field  string
	}{
		{"fk on insert", "INSERT INTO contributions", &pgconn.PgError{Code: "23503", ConstraintName: "contributions_spec_id_fkey"}, perr.ErrorCodeInvalidArgument, "fkey"},
		{"lookup fails", "INSERT INTO specs", errors.New("conn reset"), perr.ErrorCodeDB, ""},
		{"lock fails", "pg_advisory_xact_lock", &pgconn.PgError{Code: "57P03"}, perr.ErrorCodeUnavailable, ""},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			db := newFakeDB()
			db.failOn, db.err = c.failOn, c.err
			mirror := &recMirror{}
			s := NewStore(db, NewPG(), WithMirror(mirror))

			n, err := s.AddBatch(context.Background(), []domain.Contribution{contribution("a", "grid")})
			if err == nil || n != 0 {
				t.Fatalf("AddBatch = %d, %v", n, err)
			}
			if got := perr.CodeOf(err); got != c.want {
				t.Fatalf("code = %v, want %v (%v)", got, c.want, err)
			}
			e, _ := perr.As(err)
			if e.Op() != "tracker.AddBatch" {
				t.Fatalf("op = %q", e.Op())
			}
			if c.field != "" && e.Field() != c.field {
				t.Fatalf("field = %q, want %q", e.Field(), c.field)
			}
			if len(mirror.batches) != 0 {
				t.Fatalf("mirror saw a failed batch")
			}
		})
	}
}

func TestStoreMirrorFailureIsNotFatal(t *testing.T) {
	db := newFakeDB()
	s := NewStore(db, NewPG(), WithMirror(&recMirror{err: errors.New("ch down")}), WithStatementTimeout(0))
	n, err := s.AddBatch(context.Background(), []domain.Contribution{contribution("a", "grid")})
	if err != nil || n != 1 {
		t.Fatalf("AddBatch = %d, %v", n, err)
	}
	if strings.Contains(db.sqls()[0], "statement_timeout") {
		t.Fatalf("statement timeout hook should be disabled")
	}
}

func TestStoreKnown(t *testing.T) {
	db := newFakeDB("old")
	s := NewStore(db, NewPG())
	for sha, want := range map[string]bool{"old": true, "new": false} {
		got, err := s.Known(context.Background(), sha)
		if err != nil || got != want {
			t.Fatalf("Known(%q) = %v, %v", sha, got, err)
		}
	}

	db.failOn, db.err = "EXISTS", &pgconn.PgError{Code: "42P01"}
	if _, err := s.Known(context.Background(), "x"); !perr.IsUndefinedTable(err) {
		t.Fatalf("expected undefined table, got %v", err)
	}
}

func TestNewStorePanics(t *testing.T) {
	kit.MustPanic(t, func() { NewStore(nil, NewPG()) })
	kit.MustPanic(t, func() { NewStore(newFakeDB(), nil) })
	kit.MustPanic(t, func() { NewRunLog(nil, NewPG()) })
}

func TestRunLog(t *testing.T) {
	db := newFakeDB()
	l := NewRunLog(db, NewPG())
	w := domain.Window{
		Since: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2015, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := l.Start(context.Background(), "run-1", domain.Github, w); err != nil {
		t.Fatalf("Start: %v", err)
	}
	fin := domain.RunFinish{
		Status: "ok",
		Result: domain.Result{Total: 3, Accepted: 2, Skipped: 1, RetrieveDur: 1500 * time.Millisecond},
	}
	if err := l.Finish(context.Background(), "run-1", domain.Github, fin); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	start, _ := db.find("INSERT INTO tracker_runs")
	if start.args[1] != "Github" {
		t.Fatalf("start args = %v", start.args)
	}
	done, _ := db.find("UPDATE tracker_runs")
	if done.args[2] != "ok" || done.args[4] != 2 || done.args[6] != 1500 {
		t.Fatalf("finish args = %v", done.args)
	}

	db.failOn, db.err = "UPDATE tracker_runs", errors.New("gone")
	if err := l.Finish(context.Background(), "run-1", domain.Github, fin); !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("expected DB error, got %v", err)
	}
}

func TestEnsureNamesUnknownTable(t *testing.T) {
	q := NewPG().Bind(newFakeDB())
	if _, err := q.EnsureNames(context.Background(), "users", []string{"x"}); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	got, err := q.EnsureNames(context.Background(), domain.TableSpecs, nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("empty names = %v, %v", got, err)
	}
}
