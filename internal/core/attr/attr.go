// Package attr parses loosely formatted attribute text into typed values
//
// Every parser takes a fallback and reports whether the input parsed.
// Blank input never parses. The keywords MaxValue and MinValue are understood
// by the numeric and time parsers, Now/Today/UtcNow by ParseDateTime.
package attr

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	perr "sentinel/internal/platform/errors"
)

// Now is the clock used by the time keywords
var Now = time.Now

// ParseBool accepts strconv forms plus yes/no and on/off
func ParseBool(s string, def bool) (bool, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "":
		return def, false
	case "yes", "on", "y":
		return true, true
	case "no", "off", "n":
		return false, true
	}
	if v, err := strconv.ParseBool(s); err == nil {
		return v, true
	}
	return def, false
}

// ParseInt parses a base 10 int
func ParseInt(s string, def int) (int, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return def, false
	case "MaxValue":
		return math.MaxInt, true
	case "MinValue":
		return math.MinInt, true
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v, true
	}
	return def, false
}

// ParseDouble parses a float64
func ParseDouble(s string, def float64) (float64, bool) {
	s = strings.TrimSpace(s)
	switch s {
	case "":
		return def, false
	case "MaxValue":
		return math.MaxFloat64, true
	case "MinValue":
		return -math.MaxFloat64, true
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, true
	}
	return def, false
}

// dateLayouts are tried in order; zone-less layouts are read as UTC
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123Z,
	time.RFC1123,
	"Monday, 2 January 2006",
	"Monday, January 2, 2006",
	"Mon, 2 Jan 2006",
	"2 January 2006",
	"January 2, 2006",
	"Jan 2, 2006",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006",
}

// ParseDateTime parses the date formats seen in archive pages and config, returned in UTC
func ParseDateTime(s string, def time.Time) (time.Time, bool) {
	s = strings.Join(strings.Fields(s), " ")
	switch s {
	case "":
		return def, false
	case "MaxValue":
		return time.Date(9999, 12, 31, 23, 59, 59, 999999999, time.UTC), true
	case "MinValue":
		return time.Time{}, true
	case "Now", "UtcNow":
		return Now().UTC(), true
	case "Today":
		n := Now()
		return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, time.UTC), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return def, false
}

var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]`)

// ParseEnum matches s case-insensitively against allowed after dropping non-word characters
// blank input returns def; anything else not in allowed is an invalid argument
func ParseEnum[T ~string](s string, def T, allowed ...T) (T, error) {
	s = nonWord.ReplaceAllString(s, "")
	if s == "" {
		return def, nil
	}
	for _, a := range allowed {
		if strings.EqualFold(s, string(a)) {
			return a, nil
		}
	}
	return def, perr.InvalidArgf("%q is not one of %v", s, allowed)
}
