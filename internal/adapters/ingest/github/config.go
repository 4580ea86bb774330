package github

import (
	"time"

	"sentinel/internal/platform/config"
)

const (
	defaultOwner   = "w3c"
	defaultRepo    = "csswg-drafts"
	defaultTimeout = 30 * time.Second
	defaultUA      = "sentinel-updater"
)

// Options configures the commit adapter
type Options struct {
	// Token is a personal access token; empty runs unauthenticated at a very low quota
	Token string

	Owner string
	Repo  string

	// BaseURL overrides the REST endpoint (tests, enterprise installs)
	BaseURL string

	UserAgent string
	Timeout   time.Duration
}

// FromConfig reads CORE_GITHUB_*; the token falls back to GITHUB_TOKEN
func FromConfig(cfg config.Conf) Options {
	gh := cfg.Prefix("CORE_GITHUB_")
	return Options{
		Token:     gh.MayString("TOKEN", cfg.MayString("GITHUB_TOKEN", "")),
		Owner:     gh.MayString("OWNER", defaultOwner),
		Repo:      gh.MayString("REPO", defaultRepo),
		BaseURL:   gh.MayURL("BASE_URL", ""),
		UserAgent: gh.MayString("USER_AGENT", defaultUA),
		Timeout:   gh.MayDuration("HTTP_TIMEOUT", defaultTimeout),
	}
}

func (o Options) withDefaults() Options {
	if o.Owner == "" {
		o.Owner = defaultOwner
	}
	if o.Repo == "" {
		o.Repo = defaultRepo
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}
