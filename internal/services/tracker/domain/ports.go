package domain

import (
	"context"
	"time"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, a Adapter, since, until time.Time) (Result, error)
	RunAll(ctx context.Context, as []Adapter, since, until time.Time) ([]Result, error)
}

// Adapter retrieves contributions of one tracker over a date range
type Adapter interface {
	Name() TrackerName
	Retrieve(ctx context.Context, since, until time.Time) ([]Contribution, error)
}

// Sink persists a batch and reports how many records were new
type Sink interface {
	AddBatch(ctx context.Context, batch []Contribution) (accepted int, err error)
}

// ShaIndex answers whether a sha was persisted by an earlier run
type ShaIndex interface {
	Known(ctx context.Context, sha string) (bool, error)
}

// Store is a sink that can also be asked about known shas
type Store interface {
	Sink
	ShaIndex
}

// Mirror receives accepted contributions after they are committed
type Mirror interface {
	Append(ctx context.Context, batch []Contribution) error
}

// RunLog records the start and end of each tracker run
type RunLog interface {
	Start(ctx context.Context, runID string, t TrackerName, w Window) error
	Finish(ctx context.Context, runID string, t TrackerName, fin RunFinish) error
}

// StorageRepo is the Postgres repository bound to a single transaction
type StorageRepo interface {
	// EnsureNames resolves names in a lookup table to ids, creating missing rows
	EnsureNames(ctx context.Context, table RefTable, names []string) (map[string]int64, error)

	// EnsureAuthors resolves authors by name to ids, creating missing rows
	EnsureAuthors(ctx context.Context, authors []Author) (map[string]int64, error)

	// InsertContributions inserts rows skipping known shas and returns the accepted shas
	InsertContributions(ctx context.Context, rows []Row) ([]string, error)

	// KnownSha reports whether sha is already stored
	KnownSha(ctx context.Context, sha string) (bool, error)

	// StartRun and FinishRun maintain tracker_runs
	StartRun(ctx context.Context, runID string, t TrackerName, w Window) error
	FinishRun(ctx context.Context, runID string, t TrackerName, fin RunFinish) error
}

// RefTable names a lookup table keyed by a unique name
type RefTable string

const (
	// TableTrackers holds tracker names
	TableTrackers RefTable = "trackers"
	// TableSpecs holds spec module names
	TableSpecs RefTable = "specs"
	// TableOrganizations holds organization names
	TableOrganizations RefTable = "organizations"
)

// Row is a contribution with its references resolved to ids
type Row struct {
	Sha            string
	TrackerID      int64
	SpecID         int64
	OrganizationID int64
	AuthorID       int64
	OccurredAt     time.Time
	Message        string
	URL            string
}
