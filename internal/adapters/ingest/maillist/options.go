package maillist

import (
	"time"

	"sentinel/internal/platform/config"
)

const (
	defaultBaseURL = "https://lists.w3.org/Archives/Public/www-style"
	defaultRate    = 2.0
	defaultTimeout = 30 * time.Second
	defaultUA      = "sentinel-updater"
)

// Options configures the archive adapter
type Options struct {
	// BaseURL is the list root, month index pages live at <BaseURL>/<2006Jan>/
	BaseURL string

	// Rate is requests per second against the archive, <= 0 disables pacing
	Rate  float64
	Burst int

	Timeout   time.Duration
	UserAgent string

	// Workers bounds concurrent entry processing within a month, 1 is strictly sequential
	Workers int

	// CacheDir keeps fetched message pages on disk, empty disables the cache
	CacheDir      string
	CacheMaxBytes int64
}

// FromConfig reads CORE_MAILLIST_*
func FromConfig(cfg config.Conf) Options {
	ml := cfg.Prefix("CORE_MAILLIST_")
	return Options{
		BaseURL:       ml.MayURL("BASE_URL", defaultBaseURL),
		Rate:          ml.MayFloat64("RATE", defaultRate),
		Burst:         ml.MayInt("BURST", 1),
		Timeout:       ml.MayDuration("HTTP_TIMEOUT", defaultTimeout),
		UserAgent:     ml.MayString("USER_AGENT", defaultUA),
		Workers:       ml.MayInt("WORKERS", 1),
		CacheDir:      ml.MayString("CACHE_DIR", ""),
		CacheMaxBytes: int64(ml.MayInt("CACHE_MAX_MB", 512)) << 20,
	}
}

func (o Options) withDefaults() Options {
	if o.BaseURL == "" {
		o.BaseURL = defaultBaseURL
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}
