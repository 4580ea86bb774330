package maillist

import (
	"context"
	"io"
	"net/http"
	"time"

	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"

	"golang.org/x/net/html/charset"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// maxBody caps a single archive page
const maxBody = 8 << 20

// Fetcher issues paced, unauthenticated GETs against the archive
// Any transport failure or non 2xx status is fatal for the run
type Fetcher struct {
	client *http.Client
	lim    *rate.Limiter
	ua     string
	cache  *Cache
	group  singleflight.Group
	now    func() time.Time
}

// NewFetcher builds a fetcher from o; cache may be nil
func NewFetcher(o Options, cache *Cache) *Fetcher {
	o = o.withDefaults()
	lim := rate.NewLimiter(rate.Inf, o.Burst)
	if o.Rate > 0 {
		lim = rate.NewLimiter(rate.Limit(o.Rate), o.Burst)
	}
	return &Fetcher{
		client: &http.Client{Timeout: o.Timeout},
		lim:    lim,
		ua:     o.UserAgent,
		cache:  cache,
		now:    time.Now,
	}
}

// Page fetches an index page, never cached since the current month keeps growing
func (f *Fetcher) Page(ctx context.Context, url string) (string, error) {
	body, _, err := f.get(ctx, url)
	return body, err
}

// Detail fetches a message page, serving from the disk cache when present.
// Concurrent calls for one url share a single request
func (f *Fetcher) Detail(ctx context.Context, url string) (string, error) {
	if f.cache != nil {
		if body, ok := f.cache.Get(url); ok {
			return body, nil
		}
	}
	v, err, _ := f.group.Do(url, func() (any, error) {
		body, h, err := f.get(ctx, url)
		if err != nil {
			return "", err
		}
		if f.cache != nil {
			if cerr := f.cache.Put(url, body, h); cerr != nil {
				logger.C(ctx).Warn().Err(cerr).Str("url", url).Msg("maillist: cache write failed")
			}
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (f *Fetcher) get(ctx context.Context, url string) (string, http.Header, error) {
	if err := f.lim.Wait(ctx); err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "maillist: waiting to fetch %s", url)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "maillist: bad url %s", url)
	}
	req.Header.Set("User-Agent", f.ua)
	req.Header.Set("Accept", "text/html")

	start := f.now()
	resp, err := f.client.Do(req)
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "maillist: fetch %s", url)
	}
	defer func() { _ = resp.Body.Close() }()

	logger.C(ctx).Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("latency", f.now().Sub(start)).
		Msg("maillist http response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		return "", nil, perr.Newf(perr.ErrorCodeUnavailable, "maillist: %s answered %d", url, resp.StatusCode)
	}

	r, err := charset.NewReader(io.LimitReader(resp.Body, maxBody), resp.Header.Get("Content-Type"))
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "maillist: decode %s", url)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", nil, perr.Wrapf(err, perr.ErrorCodeUnavailable, "maillist: read %s", url)
	}
	return string(b), resp.Header, nil
}
