package github

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"sentinel/internal/core/spectag"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"
	identdom "sentinel/internal/services/ident/domain"
	"sentinel/internal/services/tracker/domain"

	gh "github.com/google/go-github/v57/github"
)

const perPage = 100

// commitLister is the slice of the go-github repositories service the adapter needs
type commitLister interface {
	ListCommits(ctx context.Context, owner, repo string, opts *gh.CommitsListOptions) ([]*gh.RepositoryCommit, *gh.Response, error)
}

// Adapter turns repository commits into contributions, one per commit
type Adapter struct {
	commits commitLister
	owner   string
	repo    string
	ident   identdom.Resolver
}

var _ domain.Adapter = (*Adapter)(nil)

// New returns a commit adapter for the repository named in o
func New(c *gh.Client, o Options, ident identdom.Resolver) *Adapter {
	if c == nil || ident == nil {
		panic("github.Adapter requires a client and an identity resolver")
	}
	o = o.withDefaults()
	return &Adapter{commits: c.Repositories, owner: o.Owner, repo: o.Repo, ident: ident}
}

// Name implements domain.Adapter
func (a *Adapter) Name() domain.TrackerName { return domain.Github }

// Retrieve lists every commit between since and until, following pagination
func (a *Adapter) Retrieve(ctx context.Context, since, until time.Time) ([]domain.Contribution, error) {
	opts := &gh.CommitsListOptions{
		Since:       since.UTC(),
		Until:       until.UTC(),
		ListOptions: gh.ListOptions{PerPage: perPage},
	}

	var out []domain.Contribution
	pages, skipped := 0, 0
	for {
		page, resp, err := a.commits.ListCommits(ctx, a.owner, a.repo, opts)
		if err != nil {
			return nil, mapError(err)
		}
		pages++
		for _, rc := range page {
			c, ok, err := a.contribution(ctx, rc)
			if err != nil {
				return nil, err
			}
			if !ok {
				skipped++
				continue
			}
			out = append(out, c)
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	logger.C(ctx).Debug().
		Str("repo", a.owner+"/"+a.repo).
		Int("pages", pages).
		Int("commits", len(out)).
		Int("skipped", skipped).
		Msg("github: commits listed")
	return out, nil
}

// contribution maps one commit; commits without a message are skipped
func (a *Adapter) contribution(ctx context.Context, rc *gh.RepositoryCommit) (domain.Contribution, bool, error) {
	commit := rc.GetCommit()
	if commit == nil || commit.Message == nil {
		return domain.Contribution{}, false, nil
	}
	author := commit.GetAuthor()
	email := strings.TrimSpace(author.GetEmail())

	who, err := a.ident.ByEmail(ctx, email)
	if err != nil {
		return domain.Contribution{}, false, err
	}

	url := rc.GetHTMLURL()
	if url == "" {
		url = rc.GetURL()
	}
	msg := commit.GetMessage()

	return domain.Contribution{
		Sha:          rc.GetSHA(),
		Author:       domain.Author{Name: strings.TrimSpace(author.GetName()), Email: email},
		Organization: who.Organization,
		Spec:         spectag.First(msg),
		Tracker:      domain.Github,
		Date:         author.GetDate().UTC(),
		Message:      msg,
		URL:          url,
	}, true, nil
}

// mapError classifies go-github failures into project error codes
func mapError(err error) error {
	var (
		rl    *gh.RateLimitError
		abuse *gh.AbuseRateLimitError
		resp  *gh.ErrorResponse
	)
	switch {
	case errors.As(err, &rl):
		return perr.Wrapf(err, perr.ErrorCodeTooManyRequests, "github rate limited until %s", rl.Rate.Reset.UTC().Format(time.RFC3339))
	case errors.As(err, &abuse):
		return perr.Wrap(err, perr.ErrorCodeTooManyRequests, "github secondary rate limit")
	case errors.As(err, &resp) && resp.Response != nil:
		switch resp.Response.StatusCode {
		case http.StatusUnauthorized:
			return perr.Wrap(err, perr.ErrorCodeUnauthorized, "github rejected the token")
		case http.StatusTooManyRequests:
			return perr.Wrap(err, perr.ErrorCodeTooManyRequests, "github rate limited")
		}
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "github answered %d", resp.Response.StatusCode)
	}
	return perr.Wrap(err, perr.ErrorCodeUnavailable, "github unavailable")
}
