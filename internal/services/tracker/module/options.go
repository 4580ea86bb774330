package module

import (
	"time"

	"sentinel/internal/platform/config"
)

// Options holds configuration options for the tracker module
type Options struct {
	RunTimeout       time.Duration
	RetrieveTimeout  time.Duration
	WriteTimeout     time.Duration
	StatementTimeout time.Duration

	// ContactsFile is the contact directory, XML or YAML by extension
	ContactsFile string

	// Mirror appends accepted rows to ClickHouse when a CH backend is configured
	Mirror bool
}

// FromConfig reads CORE_TRACKER_* and CORE_CONTACTS_FILE
func FromConfig(cfg config.Conf) Options {
	tr := cfg.Prefix("CORE_TRACKER_")
	return Options{
		RunTimeout:       tr.MayDuration("RUN_TIMEOUT", 0),
		RetrieveTimeout:  tr.MayDuration("RETRIEVE_TIMEOUT", 0),
		WriteTimeout:     tr.MayDuration("WRITE_TIMEOUT", 5*time.Minute),
		StatementTimeout: tr.MayDuration("STATEMENT_TIMEOUT", 30*time.Second),
		ContactsFile:     cfg.Prefix("CORE_").MayString("CONTACTS_FILE", "NameEmailOrganization.xml"),
		Mirror:           tr.MayBool("MIRROR", true),
	}
}
