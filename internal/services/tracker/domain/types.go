// Package domain holds the contribution model and the ports of the tracker service
package domain

import (
	"strings"
	"time"
)

// TrackerName identifies the source a contribution was retrieved from
type TrackerName string

const (
	// Github is the commit history of the drafts repository
	Github TrackerName = "Github"
	// MailList is the public mailing list archive
	MailList TrackerName = "MailList"
)

// Trackers lists every known tracker in run order
var Trackers = []TrackerName{Github, MailList}

// ParseTracker maps a case-insensitive name to a TrackerName
func ParseTracker(s string) (TrackerName, bool) {
	for _, t := range Trackers {
		if strings.EqualFold(string(t), strings.TrimSpace(s)) {
			return t, true
		}
	}
	return "", false
}

// Author is the person credited with a contribution
type Author struct {
	Name  string
	Email string
}

// Contribution is one normalized activity record
type Contribution struct {
	// Sha is the dedup identity of the record
	Sha          string
	Author       Author
	Organization string
	// Spec is the classified module tag or "unknown"
	Spec    string
	Tracker TrackerName
	// Date is always UTC
	Date    time.Time
	Message string
	URL     string
}

// WithSpec returns a copy of c carrying spec and sha
func (c Contribution) WithSpec(spec, sha string) Contribution {
	c.Spec = spec
	c.Sha = sha
	return c
}

// Window is the inclusive date range of a run
type Window struct {
	Since time.Time `validate:"required"`
	Until time.Time `validate:"required,gtefield=Since"`
}

// Result summarizes one tracker run
type Result struct {
	Tracker     TrackerName
	Total       int
	Accepted    int
	Skipped     int
	RetrieveDur time.Duration
	WriteDur    time.Duration
}

// RunFinish is what the run log records when a run ends
type RunFinish struct {
	Status  string
	Result  Result
	ErrText string
}
