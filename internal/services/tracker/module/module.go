// Package module wires the tracker runner, its storage and both tracker adapters
package module

import (
	"context"
	"strings"

	"sentinel/internal/modkit"
	"sentinel/internal/modkit/repokit"

	"sentinel/internal/adapters/ingest/github"
	"sentinel/internal/adapters/ingest/maillist"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	"sentinel/internal/platform/store"
	str "sentinel/internal/platform/strings"
	identdom "sentinel/internal/services/ident/domain"
	identrepo "sentinel/internal/services/ident/repo"
	identsvc "sentinel/internal/services/ident/service"
	"sentinel/internal/services/tracker/domain"
	"sentinel/internal/services/tracker/repo"
	"sentinel/internal/services/tracker/service"
)

// Ports defines the tracker module ports
type Ports struct {
	Runner   domain.RunnerPort
	Resolver identdom.Resolver
	Store    domain.Store
	Adapters []domain.Adapter
}

// Module implements the tracker module
type Module struct {
	name   string
	dryRun bool
	deps   modkit.Deps
	ports  Ports
}

var _ modkit.Module = (*Module)(nil)

// New constructs the tracker module from deps.Cfg
// Without dry run a Postgres seam is required; dry run keeps every write in memory
func New(ctx context.Context, deps modkit.Deps, opts ...modkit.Option) (*Module, error) {
	b := modkit.Build("tracker", opts...)
	o := FromConfig(deps.Cfg)
	if b.Timeout > 0 {
		o.RunTimeout = b.Timeout
	}
	log := logger.Named(b.Name)

	resolver := identsvc.New(identrepo.NewFile(o.ContactsFile))

	var (
		st   domain.Store
		runs domain.RunLog
	)
	switch {
	case b.DryRun:
		st = repo.NewMemory()
		log.Info().Msg("dry run: contributions stay in memory")
	case !deps.HasPG():
		return nil, perr.InvalidArgf("tracker: postgres is not configured, set SERVICE_PGSQL_DBURL or use dry run")
	default:
		storeOpts := []repo.Option{repo.WithStatementTimeout(o.StatementTimeout)}
		if m := mirror(ctx, deps, o); m != nil {
			storeOpts = append(storeOpts, repo.WithMirror(m))
		}
		binder := repo.NewPG()
		st = repo.NewStore(deps.PG, binder, storeOpts...)
		runs = repo.NewRunLog(deps.PG, binder)
	}

	ghOpts := github.FromConfig(deps.Cfg)
	client, err := github.NewClient(ctx, ghOpts)
	if err != nil {
		return nil, err
	}
	commits := github.New(client, ghOpts, resolver)

	mail, err := maillist.New(maillist.FromConfig(deps.Cfg), resolver, st)
	if err != nil {
		return nil, err
	}

	svc := service.New(st, runs, service.Config{
		RunTimeout:      o.RunTimeout,
		RetrieveTimeout: o.RetrieveTimeout,
		WriteTimeout:    o.WriteTimeout,
	})

	return &Module{
		name:   b.Name,
		dryRun: b.DryRun,
		deps:   deps,
		ports: Ports{
			Runner:   svc,
			Resolver: resolver,
			Store:    st,
			Adapters: []domain.Adapter{commits, mail},
		},
	}, nil
}

// mirror returns the ClickHouse mirror when enabled and its table is in place
func mirror(ctx context.Context, deps modkit.Deps, o Options) domain.Mirror {
	if !o.Mirror || deps.CH == nil {
		return nil
	}
	if p, ok := deps.CH.(store.Pinger); ok {
		if err := repokit.Ping(ctx, "clickhouse", p); err != nil {
			logger.C(ctx).Warn().Err(err).Msg("tracker: clickhouse mirror disabled")
			return nil
		}
	}
	m := repo.NewCHMirror(deps.CH)
	if err := m.EnsureSchema(ctx); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("tracker: clickhouse mirror disabled")
		return nil
	}
	return m
}

// Name returns the module name
func (m *Module) Name() string { return str.MustString(m.name, "module name") }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// DryRun reports whether writes stay in memory
func (m *Module) DryRun() bool { return m.dryRun }

// Runner returns the tracker runner
func (m *Module) Runner() domain.RunnerPort { return m.ports.Runner }

// Adapters returns the adapters for names in the order given
// no names selects every tracker in its default order
func (m *Module) Adapters(names ...string) ([]domain.Adapter, error) {
	names = str.IfEmpty(names, trackerNames())
	out := make([]domain.Adapter, 0, len(names))
	for _, n := range names {
		t, ok := domain.ParseTracker(n)
		if !ok {
			return nil, perr.InvalidArgf("tracker: unknown tracker %q (want one of %s)", n, strings.Join(trackerNames(), ", "))
		}
		for _, a := range m.ports.Adapters {
			if a.Name() == t {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func trackerNames() []string {
	names := make([]string, 0, len(domain.Trackers))
	for _, t := range domain.Trackers {
		names = append(names, string(t))
	}
	return names
}
