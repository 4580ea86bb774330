package store

import (
	"time"

	"sentinel/internal/platform/config"
)

// Target selects which Postgres database a run writes to
type Target string

const (
	// TargetLocal writes to SERVICE_PGSQL_DBURL
	TargetLocal Target = "local"

	// TargetRemote writes to SERVICE_PGSQL_REMOTE_DBURL
	TargetRemote Target = "remote"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG PGConfig
	CH CHConfig
}

// PGConfig configures postgres connectivity and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	// Guard/boot knobs
	ConnectRetries int           // default 6
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures the clickhouse mirror
type CHConfig struct {
	Enabled   bool
	URL       string
	ClientTag string
}

// FromConfig reads SERVICE_PGSQL_* and SERVICE_CLICKHOUSE_* for the given target
// A backend without a URL stays disabled
func FromConfig(cfg config.Conf, target Target) Config {
	pg := cfg.Prefix("SERVICE_PGSQL_")
	ch := cfg.Prefix("SERVICE_CLICKHOUSE_")

	urlKey := "DBURL"
	if target == TargetRemote {
		urlKey = "REMOTE_DBURL"
	}
	pgURL := pg.MayString(urlKey, "")
	chURL := ch.MayString("DBURL", "")

	return Config{
		AppName: "sentinel-updater",
		PG: PGConfig{
			Enabled:        pgURL != "",
			URL:            pgURL,
			MaxConns:       int32(pg.MayInt("MAX_CONNS", 4)),
			LogSQL:         pg.MayBool("LOG_SQL", false),
			SlowQueryMs:    pg.MayInt("SLOW_MS", 500),
			ConnectRetries: pg.MayInt("CONNECT_RETRIES", 6),
			PingTimeout:    pg.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled:   chURL != "",
			URL:       chURL,
			ClientTag: string(target),
		},
	}
}
