// Package maillist retrieves contributions from the public mailing list archive
package maillist

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"sentinel/internal/core/hashing"
	"sentinel/internal/core/spectag"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	ptime "sentinel/internal/platform/time"
	identdom "sentinel/internal/services/ident/domain"
	"sentinel/internal/services/tracker/domain"

	"golang.org/x/sync/errgroup"
)

// monthLayout renders the path segment of a month index, e.g. 2015Jan
const monthLayout = "2006Jan"

// Adapter walks month index pages and fans each message out per spec tag
type Adapter struct {
	opts   Options
	base   *url.URL
	fetch  *Fetcher
	ident  identdom.Resolver
	index  domain.ShaIndex
	intent IntentFunc
}

var _ domain.Adapter = (*Adapter)(nil)

// Option customizes an Adapter
type Option func(*Adapter)

// WithIntent replaces DetermineIntent for untagged messages
func WithIntent(fn IntentFunc) Option { return func(a *Adapter) { a.intent = fn } }

// WithFetcher replaces the fetcher built from Options
func WithFetcher(f *Fetcher) Option { return func(a *Adapter) { a.fetch = f } }

// New builds the archive adapter; index may be nil to disable the known sha check
func New(o Options, ident identdom.Resolver, index domain.ShaIndex, opts ...Option) (*Adapter, error) {
	if ident == nil {
		panic("maillist.Adapter requires an identity resolver")
	}
	o = o.withDefaults()
	base, err := url.Parse(strings.TrimRight(o.BaseURL, "/"))
	if err != nil || !base.IsAbs() {
		return nil, perr.InvalidArgf("maillist: invalid base url %q", o.BaseURL)
	}
	a := &Adapter{opts: o, base: base, ident: ident, index: index, intent: DetermineIntent}
	for _, opt := range opts {
		opt(a)
	}
	if a.fetch == nil {
		var cache *Cache
		if o.CacheDir != "" {
			if cache, err = NewCache(o.CacheDir, o.CacheMaxBytes); err != nil {
				return nil, err
			}
		}
		a.fetch = NewFetcher(o, cache)
	}
	return a, nil
}

// Name implements domain.Adapter
func (a *Adapter) Name() domain.TrackerName { return domain.MailList }

// MonthURL returns the index page of the month containing t
func (a *Adapter) MonthURL(t time.Time) string {
	return a.base.String() + "/" + t.UTC().Format(monthLayout) + "/"
}

// Retrieve walks every month spanned by [since, until]
func (a *Adapter) Retrieve(ctx context.Context, since, until time.Time) ([]domain.Contribution, error) {
	r := &run{a: a, claimed: map[string]struct{}{}, details: map[string]detail{}}
	var out []domain.Contribution
	for _, m := range ptime.Months(since, until) {
		got, err := r.month(ctx, m)
		if err != nil {
			return nil, err
		}
		out = append(out, got...)
	}
	return out, nil
}

// branch is one unit of work: an entry paired with one of its tags
type branch struct {
	entry  entry
	tag    string
	sha    string
	tagged bool
}

// fanOut expands entries into branches, one per distinct tag or one untagged
func fanOut(entries []entry) []branch {
	var out []branch
	for _, e := range entries {
		if !spectag.Matches(e.Subject) {
			out = append(out, branch{entry: e, sha: hashing.Sum(e.URL)})
			continue
		}
		for _, tag := range spectag.All(e.Subject) {
			out = append(out, branch{entry: e, tag: tag, sha: hashing.Key(e.URL, tag), tagged: true})
		}
	}
	return out
}

// run holds the per Retrieve dedup state
type run struct {
	a *Adapter

	mu      sync.Mutex
	claimed map[string]struct{}
	details map[string]detail
}

// claim reports whether sha is seen for the first time in this run
func (r *run) claim(sha string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.claimed[sha]; ok {
		return false
	}
	r.claimed[sha] = struct{}{}
	return true
}

func (r *run) month(ctx context.Context, m time.Time) ([]domain.Contribution, error) {
	log := logger.C(ctx)
	indexURL := r.a.MonthURL(m)
	page, err := r.a.fetch.Page(ctx, indexURL)
	if err != nil {
		return nil, err
	}
	base, err := url.Parse(indexURL)
	if err != nil {
		return nil, perr.InvalidArgf("maillist: bad index url %q", indexURL)
	}

	entries, st := parseIndex(base, page)
	if st.MissingList {
		log.Debug().Str("url", indexURL).Err(perr.ParseMissf("no message list")).Msg("maillist: parse miss")
	}
	branches := fanOut(entries)

	slots := make([]*domain.Contribution, len(branches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.a.opts.Workers)
	for i, b := range branches {
		g.Go(func() error {
			c, ok, err := r.branch(gctx, b)
			if ok {
				slots[i] = &c
			}
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.Contribution, 0, len(slots))
	for _, c := range slots {
		if c != nil {
			out = append(out, *c)
		}
	}
	log.Info().
		Str("month", m.Format(monthLayout)).
		Int("blocks", st.Blocks).
		Int("bad_dates", st.BadDates).
		Int("entries", st.Entries).
		Int("branches", len(branches)).
		Int("emitted", len(out)).
		Msg("maillist: month parsed")
	return out, nil
}

// branch resolves one entry and tag into a contribution; ok is false when skipped
func (r *run) branch(ctx context.Context, b branch) (domain.Contribution, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Contribution{}, false, err
	}
	if !r.claim(b.sha) {
		return domain.Contribution{}, false, nil
	}
	if r.a.index != nil {
		known, err := r.a.index.Known(ctx, b.sha)
		if err != nil {
			return domain.Contribution{}, false, err
		}
		if known {
			return domain.Contribution{}, false, nil
		}
	}

	d, err := r.detail(ctx, b.entry.URL)
	if err != nil {
		return domain.Contribution{}, false, err
	}

	spec := b.tag
	if !b.tagged {
		spec = r.a.intent(b.entry.Subject, d.Body)
		if spec == "" || spec == spectag.Unknown {
			return domain.Contribution{}, false, nil
		}
	}

	author, org, err := r.author(ctx, b.entry, d)
	if err != nil {
		return domain.Contribution{}, false, err
	}

	return domain.Contribution{
		Author:       author,
		Organization: org,
		Tracker:      domain.MailList,
		Date:         b.entry.Date,
		Message:      b.entry.Subject,
		URL:          b.entry.URL,
	}.WithSpec(spec, b.sha), true, nil
}

// detail fetches and parses a message page once per run
func (r *run) detail(ctx context.Context, u string) (detail, error) {
	r.mu.Lock()
	d, ok := r.details[u]
	r.mu.Unlock()
	if ok {
		return d, nil
	}

	page, err := r.a.fetch.Detail(ctx, u)
	if err != nil {
		return detail{}, err
	}
	d, ok = parseDetail(page)
	if !ok {
		logger.C(ctx).Debug().Str("url", u).Err(perr.ParseMissf("no sender or body")).Msg("maillist: parse miss")
	}

	r.mu.Lock()
	r.details[u] = d
	r.mu.Unlock()
	return d, nil
}

// author resolves the sender by email when the page has one, by display name otherwise
func (r *run) author(ctx context.Context, e entry, d detail) (domain.Author, string, error) {
	name := e.Author
	if name == "" {
		name = d.Author
	}
	email := d.Email

	var org string
	if email != "" {
		who, err := r.a.ident.ByEmail(ctx, email)
		if err != nil {
			return domain.Author{}, "", err
		}
		if name == "" {
			name = who.Name
		}
		org = who.Organization
	} else {
		who, err := r.a.ident.ByName(ctx, name)
		if err != nil {
			return domain.Author{}, "", err
		}
		email = strings.ToLower(who.Email)
		org = who.Organization
	}
	if email == "" {
		email = identdom.Unknown
	}
	return domain.Author{Name: name, Email: email}, org, nil
}
