package repo

import (
	"context"
	"time"

	"sentinel/internal/modkit/repokit"
	perr "sentinel/internal/platform/errors"
	"sentinel/internal/services/tracker/domain"
)

// EventsTable is the ClickHouse table contributions are mirrored into
const EventsTable = "contribution_events"

const eventsDDL = `
CREATE TABLE IF NOT EXISTS contribution_events (
	sha          String,
	tracker      LowCardinality(String),
	spec         LowCardinality(String),
	organization String,
	author_name  String,
	author_email String,
	occurred_at  DateTime64(3, 'UTC'),
	url          String,
	mirrored_at  DateTime64(3, 'UTC')
)
ENGINE = ReplacingMergeTree(mirrored_at)
PARTITION BY toYYYYMM(occurred_at)
ORDER BY (tracker, occurred_at, sha)`

// CHMirror appends accepted contributions to ClickHouse for analytics
type CHMirror struct {
	ch  repokit.Columnar
	now func() time.Time
}

var _ domain.Mirror = (*CHMirror)(nil)

// NewCHMirror returns a mirror writing through ch
func NewCHMirror(ch repokit.Columnar) *CHMirror {
	if ch == nil {
		panic("tracker.CHMirror requires a non nil Columnar")
	}
	return &CHMirror{ch: ch, now: time.Now}
}

// EnsureSchema creates the events table when missing
func (m *CHMirror) EnsureSchema(ctx context.Context) error {
	if err := m.ch.Exec(ctx, eventsDDL); err != nil {
		return perr.Wrap(err, perr.ErrorCodeUnavailable, "clickhouse: create "+EventsTable)
	}
	return nil
}

// Append inserts batch as one ClickHouse block
func (m *CHMirror) Append(ctx context.Context, batch []domain.Contribution) error {
	if len(batch) == 0 {
		return nil
	}
	at := m.now().UTC()
	rows := make([][]any, 0, len(batch))
	for _, c := range batch {
		rows = append(rows, []any{
			c.Sha, string(c.Tracker), c.Spec, c.Organization,
			c.Author.Name, c.Author.Email, c.Date.UTC(), c.URL, at,
		})
	}
	if err := m.ch.Insert(ctx, EventsTable, rows); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "clickhouse: insert %d rows", len(rows))
	}
	return nil
}
