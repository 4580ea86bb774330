package repo

import (
	"context"
	"time"

	"sentinel/internal/modkit/repokit"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	"sentinel/internal/services/tracker/domain"
)

// DefaultStatementTimeout bounds each statement of a batch transaction
const DefaultStatementTimeout = 30 * time.Second

// writeLockKey serializes batch writers across processes
const writeLockKey = "sentinel:contributions"

// Option configures a Store
type Option func(*Store)

// WithMirror appends accepted contributions to m after every commit
func WithMirror(m domain.Mirror) Option { return func(s *Store) { s.mirror = m } }

// WithStatementTimeout overrides DefaultStatementTimeout, zero disables it
func WithStatementTimeout(d time.Duration) Option { return func(s *Store) { s.stmtTimeout = d } }

// Store is the Postgres backed domain.Store
type Store struct {
	db          repokit.TxRunner
	binder      repokit.Binder[domain.StorageRepo]
	mirror      domain.Mirror
	stmtTimeout time.Duration
}

var _ domain.Store = (*Store)(nil)

// NewStore wires a Postgres store, panics on a nil TxRunner or binder
func NewStore(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo], opts ...Option) *Store {
	if db == nil {
		panic("tracker.Store requires a non nil TxRunner")
	}
	if binder == nil {
		panic("tracker.Store requires a non nil Repo binder")
	}
	s := &Store{db: db, binder: binder, stmtTimeout: DefaultStatementTimeout}
	for _, o := range opts {
		o(s)
	}
	hooks := []repokit.BeginHook{WriteLock}
	if s.stmtTimeout > 0 {
		hooks = append([]repokit.BeginHook{repokit.StatementTimeout(s.stmtTimeout)}, hooks...)
	}
	s.db = repokit.WithBeginHooks(db, hooks...)
	return s
}

// WriteLock takes a transaction scoped advisory lock so concurrent updaters
// resolve references one at a time
func WriteLock(ctx context.Context, q repokit.Queryer) error {
	_, err := q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, writeLockKey)
	return err
}

// AddBatch stores batch in one transaction and returns how many records were new
func (s *Store) AddBatch(ctx context.Context, batch []domain.Contribution) (int, error) {
	in := prepare(batch)
	if len(in) == 0 {
		return 0, nil
	}
	r := collectRefs(in)

	var accepted []string
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		repo := s.binder.Bind(q)

		trackers, err := repo.EnsureNames(ctx, domain.TableTrackers, r.trackers)
		if err != nil {
			return perr.FromPostgres(err, "ensure trackers")
		}
		specs, err := repo.EnsureNames(ctx, domain.TableSpecs, r.specs)
		if err != nil {
			return perr.FromPostgres(err, "ensure specs")
		}
		orgs, err := repo.EnsureNames(ctx, domain.TableOrganizations, r.orgs)
		if err != nil {
			return perr.FromPostgres(err, "ensure organizations")
		}
		authors, err := repo.EnsureAuthors(ctx, r.authors)
		if err != nil {
			return perr.FromPostgres(err, "ensure authors")
		}

		rows := make([]domain.Row, 0, len(in))
		for _, c := range in {
			rows = append(rows, domain.Row{
				Sha:            c.Sha,
				TrackerID:      trackers[string(c.Tracker)],
				SpecID:         specs[c.Spec],
				OrganizationID: orgs[c.Organization],
				AuthorID:       authors[c.Author.Name],
				OccurredAt:     c.Date,
				Message:        c.Message,
				URL:            c.URL,
			})
		}
		accepted, err = repo.InsertContributions(ctx, rows)
		if err != nil {
			return perr.AttachFieldFromPg(perr.FromPostgres(err, "insert contributions"))
		}
		return nil
	})
	if err != nil {
		if _, ok := perr.As(err); !ok {
			err = perr.FromPostgres(err, "add batch")
		}
		return 0, perr.WithOp(err, "tracker.AddBatch")
	}

	if s.mirror != nil && len(accepted) > 0 {
		if merr := s.mirror.Append(ctx, pick(in, accepted)); merr != nil {
			// analytics only, postgres already committed
			logger.C(ctx).Warn().Err(merr).Int("rows", len(accepted)).Msg("tracker: mirror append failed")
		}
	}
	return len(accepted), nil
}

// Known reports whether sha was stored by an earlier run
func (s *Store) Known(ctx context.Context, sha string) (bool, error) {
	ok, err := s.binder.Bind(s.db).KnownSha(ctx, sha)
	if err != nil {
		return false, perr.WithOp(perr.FromPostgres(err, "known sha"), "tracker.Known")
	}
	return ok, nil
}

// pick returns the contributions of batch whose sha is in shas, in batch order
func pick(batch []domain.Contribution, shas []string) []domain.Contribution {
	want := make(map[string]struct{}, len(shas))
	for _, s := range shas {
		want[s] = struct{}{}
	}
	out := make([]domain.Contribution, 0, len(shas))
	for _, c := range batch {
		if _, ok := want[c.Sha]; ok {
			out = append(out, c)
		}
	}
	return out
}

// RunLog records tracker runs in tracker_runs
type RunLog struct {
	db     repokit.TxRunner
	binder repokit.Binder[domain.StorageRepo]
}

var _ domain.RunLog = (*RunLog)(nil)

// NewRunLog returns a Postgres backed domain.RunLog
func NewRunLog(db repokit.TxRunner, binder repokit.Binder[domain.StorageRepo]) *RunLog {
	if db == nil || binder == nil {
		panic("tracker.RunLog requires a TxRunner and a Repo binder")
	}
	return &RunLog{db: db, binder: binder}
}

// Start marks a run as running
func (l *RunLog) Start(ctx context.Context, runID string, t domain.TrackerName, w domain.Window) error {
	return perr.FromPostgres(l.binder.Bind(l.db).StartRun(ctx, runID, t, w), "start run")
}

// Finish stores the outcome of a run
func (l *RunLog) Finish(ctx context.Context, runID string, t domain.TrackerName, fin domain.RunFinish) error {
	return perr.FromPostgres(l.binder.Bind(l.db).FinishRun(ctx, runID, t, fin), "finish run")
}
