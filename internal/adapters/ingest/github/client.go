// Package github retrieves commits of the drafts repository through the GitHub REST v3 API
package github

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"

	gh "github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// lowWatermark is the remaining quota below which responses are logged at warn
const lowWatermark = 50

// rateTransport logs response metadata and the quota GitHub reports
type rateTransport struct {
	base http.RoundTripper
	ua   string
	now  func() time.Time
}

func (t *rateTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.ua != "" {
		req = req.Clone(req.Context())
		req.Header.Set("User-Agent", t.ua)
	}

	start := t.now()
	resp, err := t.base.RoundTrip(req)
	lat := t.now().Sub(start)
	log := logger.Named("github")
	if err != nil {
		log.Warn().Err(err).Str("path", req.URL.Path).Dur("latency", lat).Msg("github transport error")
		return resp, err
	}

	rem, reset, retryAfter := parseRateHeaders(resp.Header)
	ev := log.Debug()
	if rem >= 0 && rem <= lowWatermark {
		ev = log.Warn()
	}
	ev.Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("query", req.URL.RawQuery).
		Int("status", resp.StatusCode).
		Dur("latency", lat).
		Int("rate_remaining", rem).
		Time("rate_reset", reset).
		Int("retry_after_s", retryAfter).
		Msg("github http response")
	return resp, nil
}

// NewClient builds a go-github client over an oauth2 token source wrapped by rateTransport
func NewClient(ctx context.Context, o Options) (*gh.Client, error) {
	o = o.withDefaults()

	hc := &http.Client{Timeout: o.Timeout}
	if tok := strings.TrimSpace(o.Token); tok != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
		hc = oauth2.NewClient(ctx, ts)
		hc.Timeout = o.Timeout
	} else {
		logger.Named("github").Warn().Msg("no github token configured, running unauthenticated")
	}

	base := hc.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc.Transport = &rateTransport{base: base, ua: o.UserAgent, now: time.Now}

	c := gh.NewClient(hc)
	c.UserAgent = o.UserAgent
	if o.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(o.BaseURL, "/") + "/")
		if err != nil || !u.IsAbs() {
			return nil, perr.InvalidArgf("github: invalid base url %q", o.BaseURL)
		}
		c.BaseURL = u
	}
	return c, nil
}
