//go:build integration_pg

package repo

import (
	"context"
	"testing"
	"time"

	"sentinel/internal/platform/store"
	"sentinel/internal/platform/store/migrate"
	"sentinel/internal/platform/store/pg/pgtest"
	"sentinel/internal/services/tracker/domain"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func openMigrated(t *testing.T) *store.Store {
	t.Helper()
	dsn := pgtest.Start(t)
	if _, err := migrate.Run(dsn, migrate.Up); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	st, err := store.Open(context.Background(), store.Config{
		AppName: "sentinel-test",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	}, store.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close(context.Background()) })
	return st
}

func TestStore_Integration(t *testing.T) {
	st := openMigrated(t)
	ctx := context.Background()
	s := NewStore(st.PG, NewPG())

	batch := []domain.Contribution{
		contribution("sha-1", "grid"),
		contribution("sha-2", "flexbox"),
	}
	n, err := s.AddBatch(ctx, batch)
	if err != nil || n != 2 {
		t.Fatalf("first AddBatch = %d, %v", n, err)
	}

	n, err = s.AddBatch(ctx, append(batch, contribution("sha-3", "grid")))
	if err != nil || n != 1 {
		t.Fatalf("second AddBatch = %d, %v", n, err)
	}

	for sha, want := range map[string]bool{"sha-1": true, "sha-3": true, "sha-9": false} {
		got, err := s.Known(ctx, sha)
		if err != nil || got != want {
			t.Fatalf("Known(%q) = %v, %v", sha, got, err)
		}
	}

	authors, err := store.Scalar[int64](ctx, st.PG, `SELECT count(*) FROM authors`)
	if err != nil || authors != 1 {
		t.Fatalf("authors = %d, %v", authors, err)
	}
	specs, err := store.Scalar[int64](ctx, st.PG, `SELECT count(*) FROM specs`)
	if err != nil || specs != 2 {
		t.Fatalf("specs = %d, %v", specs, err)
	}
}

func TestRunLog_Integration(t *testing.T) {
	st := openMigrated(t)
	ctx := context.Background()
	l := NewRunLog(st.PG, NewPG())

	id := uuid.NewString()
	w := domain.Window{Since: time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC), Until: time.Date(2015, 1, 31, 0, 0, 0, 0, time.UTC)}
	if err := l.Start(ctx, id, domain.MailList, w); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := l.Finish(ctx, id, domain.MailList, domain.RunFinish{
		Status: "ok",
		Result: domain.Result{Total: 4, Accepted: 3, Skipped: 1},
	}); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	status, err := store.Scalar[string](ctx, st.PG, `SELECT status FROM tracker_runs WHERE run_id = $1`, id)
	if err != nil || status != "ok" {
		t.Fatalf("status = %q, %v", status, err)
	}
}
