// Package repo provides postgres, clickhouse and in memory storage for contributions
package repo

import (
	"context"
	"time"

	"sentinel/internal/modkit/repokit"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/services/tracker/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

// lookup tables are allow listed, names never reach sql text from callers
var refSQL = map[domain.RefTable][2]string{
	domain.TableTrackers: {
		`INSERT INTO trackers (name) SELECT DISTINCT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		`SELECT id, name FROM trackers WHERE name = ANY($1::text[])`,
	},
	domain.TableSpecs: {
		`INSERT INTO specs (name) SELECT DISTINCT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		`SELECT id, name FROM specs WHERE name = ANY($1::text[])`,
	},
	domain.TableOrganizations: {
		`INSERT INTO organizations (name) SELECT DISTINCT unnest($1::text[]) ON CONFLICT (name) DO NOTHING`,
		`SELECT id, name FROM organizations WHERE name = ANY($1::text[])`,
	},
}

// EnsureNames creates missing names in table and returns the id of every name
func (r *queries) EnsureNames(ctx context.Context, table domain.RefTable, names []string) (map[string]int64, error) {
	stmts, ok := refSQL[table]
	if !ok {
		return nil, perr.InvalidArgf("unknown lookup table %q", table)
	}
	if len(names) == 0 {
		return map[string]int64{}, nil
	}
	if _, err := r.q.Exec(ctx, stmts[0], names); err != nil {
		return nil, err
	}
	return r.ids(ctx, stmts[1], names)
}

// EnsureAuthors creates missing authors and fills a blank email on existing ones
func (r *queries) EnsureAuthors(ctx context.Context, authors []domain.Author) (map[string]int64, error) {
	if len(authors) == 0 {
		return map[string]int64{}, nil
	}
	names := make([]string, 0, len(authors))
	emails := make([]string, 0, len(authors))
	for _, a := range authors {
		names = append(names, a.Name)
		emails = append(emails, a.Email)
	}
	if _, err := r.q.Exec(ctx, `
		INSERT INTO authors (name, email)
		SELECT * FROM UNNEST($1::text[], $2::text[])
		ON CONFLICT (name) DO UPDATE SET email = EXCLUDED.email
		WHERE authors.email IN ('', 'unknown') AND EXCLUDED.email NOT IN ('', 'unknown')
	`, names, emails); err != nil {
		return nil, err
	}
	return r.ids(ctx, `SELECT id, name FROM authors WHERE name = ANY($1::text[])`, names)
}

func (r *queries) ids(ctx context.Context, sql string, names []string) (map[string]int64, error) {
	rows, err := r.q.Query(ctx, sql, names)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int64, len(names))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		out[name] = id
	}
	return out, rows.Err()
}

// InsertContributions inserts rows and returns the shas that were new
func (r *queries) InsertContributions(ctx context.Context, in []domain.Row) ([]string, error) {
	if len(in) == 0 {
		return nil, nil
	}
	var (
		shas     = make([]string, 0, len(in))
		authors  = make([]int64, 0, len(in))
		orgs     = make([]int64, 0, len(in))
		specs    = make([]int64, 0, len(in))
		trackers = make([]int64, 0, len(in))
		dates    = make([]time.Time, 0, len(in))
		messages = make([]string, 0, len(in))
		urls     = make([]string, 0, len(in))
	)
	for _, x := range in {
		shas = append(shas, x.Sha)
		authors = append(authors, x.AuthorID)
		orgs = append(orgs, x.OrganizationID)
		specs = append(specs, x.SpecID)
		trackers = append(trackers, x.TrackerID)
		dates = append(dates, x.OccurredAt.UTC())
		messages = append(messages, x.Message)
		urls = append(urls, x.URL)
	}

	rows, err := r.q.Query(ctx, `
		INSERT INTO contributions (
			sha, author_id, organization_id, spec_id, tracker_id, occurred_at, message, url
		)
		SELECT * FROM UNNEST(
			$1::text[], $2::bigint[], $3::bigint[], $4::bigint[],
			$5::bigint[], $6::timestamptz[], $7::text[], $8::text[]
		)
		ON CONFLICT (sha) DO NOTHING
		RETURNING sha
	`, shas, authors, orgs, specs, trackers, dates, messages, urls)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accepted []string
	for rows.Next() {
		var sha string
		if err := rows.Scan(&sha); err != nil {
			return nil, err
		}
		accepted = append(accepted, sha)
	}
	return accepted, rows.Err()
}

// KnownSha reports whether a contribution with sha exists
func (r *queries) KnownSha(ctx context.Context, sha string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM contributions WHERE sha = $1)`, sha).Scan(&ok)
	return ok, err
}

// StartRun records a running tracker run (idempotent)
func (r *queries) StartRun(ctx context.Context, runID string, t domain.TrackerName, w domain.Window) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO tracker_runs (run_id, tracker, since_utc, until_utc, started_at, status)
		VALUES ($1, $2, $3, $4, now(), 'running')
		ON CONFLICT (run_id, tracker) DO UPDATE
		SET started_at = now(), status = 'running', error = null, finished_at = null
	`, runID, string(t), w.Since.UTC(), w.Until.UTC())
	return err
}

// FinishRun records the outcome of a tracker run
func (r *queries) FinishRun(ctx context.Context, runID string, t domain.TrackerName, fin domain.RunFinish) error {
	_, err := r.q.Exec(ctx, `
		UPDATE tracker_runs SET
			finished_at = now(),
			status = $3,
			total = $4,
			accepted = $5,
			skipped = $6,
			retrieve_ms = $7,
			write_ms = $8,
			error = NULLIF($9, '')
		WHERE run_id = $1 AND tracker = $2
	`,
		runID, string(t), fin.Status,
		fin.Result.Total, fin.Result.Accepted, fin.Result.Skipped,
		int(fin.Result.RetrieveDur.Milliseconds()), int(fin.Result.WriteDur.Milliseconds()),
		fin.ErrText,
	)
	return err
}
