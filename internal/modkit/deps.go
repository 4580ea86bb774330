package modkit

import (
	"sentinel/internal/modkit/repokit"
	"sentinel/internal/platform/config"
	"sentinel/internal/platform/logger"
	"sentinel/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// PG and CH are nil when the backend is not configured
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse
}

// FromStore builds Deps from an opened Store
func FromStore(cfg config.Conf, st *store.Store) Deps {
	d := Deps{Cfg: cfg}
	if st == nil {
		return d
	}
	d.Log = st.Log
	d.PG = st.PG
	d.CH = st.CH
	return d
}

// HasPG reports whether a Postgres seam is wired
func (d Deps) HasPG() bool { return d.PG != nil }
