// Package migrate applies the embedded Postgres schema with golang-migrate
package migrate

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	perr "sentinel/internal/platform/errors"
	"sentinel/internal/platform/logger"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
)

//go:embed sql/*.sql
var files embed.FS

// Direction selects which way Run moves the schema
type Direction string

const (
	// Up applies every pending migration
	Up Direction = "up"

	// Down reverts every applied migration
	Down Direction = "down"
)

// Status is the schema version after a run
type Status struct {
	Version uint
	Dirty   bool
	Changed bool
}

// Run opens dbURL with lib/pq and moves the schema in dir
func Run(dbURL string, dir Direction) (Status, error) {
	if dir != Up && dir != Down {
		return Status{}, perr.InvalidArgf("migrate: unknown direction %q", dir)
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return Status{}, perr.Wrap(err, perr.ErrorCodeDB, "migrate: open database")
	}
	defer func() { _ = db.Close() }()

	m, err := newMigrator(db)
	if err != nil {
		return Status{}, err
	}

	var runErr error
	if dir == Down {
		runErr = m.Down()
	} else {
		runErr = m.Up()
	}

	st := Status{Changed: !errors.Is(runErr, migrate.ErrNoChange)}
	if runErr != nil && st.Changed {
		return st, perr.Wrapf(runErr, perr.ErrorCodeDB, "migrate %s failed", dir)
	}

	v, dirty, verr := m.Version()
	switch {
	case errors.Is(verr, migrate.ErrNilVersion):
	case verr != nil:
		return st, perr.Wrap(verr, perr.ErrorCodeDB, "migrate: read version")
	default:
		st.Version, st.Dirty = v, dirty
	}

	logger.Named("migrate").Info().
		Str("direction", string(dir)).
		Uint("version", st.Version).
		Bool("dirty", st.Dirty).
		Bool("changed", st.Changed).
		Msg("schema migrated")
	return st, nil
}

func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("migrate: embedded source: %w", err)
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate: create driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate: create migrator")
	}
	return m, nil
}

// Files lists the embedded migration names, oldest first
func Files() ([]string, error) {
	entries, err := files.ReadDir("sql")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name())
	}
	return out, nil
}
