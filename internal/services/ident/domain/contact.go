// Package domain defines the core types and interfaces for the ident service
package domain

import (
	"context"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Unknown is the placeholder the directory file uses for a missing attribute
const Unknown = "unknown"

// Contact is one directory entry as written in the file
type Contact struct {
	Name         string `yaml:"name" xml:"name,attr" validate:"required"`
	Email        string `yaml:"email" xml:"email,attr" validate:"required,email_or_unknown"`
	Organization string `yaml:"org" xml:"org,attr" validate:"required"`
}

// Directory is the loaded contact table in file order
// it is never mutated after load
type Directory []Contact

// ByEmail returns the first contact whose email equals email exactly
func (d Directory) ByEmail(email string) (Contact, bool) {
	if isBlank(email) {
		return Contact{}, false
	}
	for _, c := range d {
		if c.Email == email {
			return c, true
		}
	}
	return Contact{}, false
}

// ByName returns the first contact whose name equals name exactly
func (d Directory) ByName(name string) (Contact, bool) {
	if isBlank(name) {
		return Contact{}, false
	}
	for _, c := range d {
		if c.Name == name {
			return c, true
		}
	}
	return Contact{}, false
}

// Identity is what callers get back from a lookup
// empty Name or Email means unknown
type Identity struct {
	Name         string
	Email        string
	Organization string
}

// Loader reads the directory from its source
type Loader interface {
	Load(ctx context.Context) (Directory, error)
}

// Resolver looks people up by email or by display name
type Resolver interface {
	ByEmail(ctx context.Context, email string) (Identity, error)
	ByName(ctx context.Context, name string) (Identity, error)
}

// isBlank treats the file placeholder like an empty value
func isBlank(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == Unknown
}

// Known returns s, or "" when s is the file placeholder
func Known(s string) string {
	if isBlank(s) {
		return ""
	}
	return s
}

var emailDomain = regexp.MustCompile("(?i)[a-z0-9!#$%&'*+/=?^_`{|}~-]+(?:\\.[a-z0-9!#$%&'*+/=?^_`{|}~-]+)*@((?:[a-z0-9](?:[a-z0-9-]*[a-z0-9])?\\.)+[a-z0-9](?:[a-z0-9-]*[a-z0-9])?)")

// PseudoOrganization derives an organization from the email domain
//   - the top level label is dropped
//   - a domain that still has a dot left (example.co.uk) is returned whole
//   - otherwise the label is title cased, or upper cased when it has at most 3 letters
//   - chromium is Google
//
// An email without a usable domain gives ""
func PseudoOrganization(email string) string {
	m := emailDomain.FindStringSubmatch(email)
	if m == nil {
		return ""
	}
	domain := strings.ToLower(m[1])
	labels := strings.Split(domain, ".")
	if len(labels) > 2 {
		return domain
	}

	// a Caser keeps state, so one per call
	org := cases.Title(language.AmericanEnglish).String(labels[0])
	if len(org) <= 3 {
		org = strings.ToUpper(org)
	}
	if strings.EqualFold(org, "chromium") {
		return "Google"
	}
	return org
}

// OrganizationOf picks the contact organization when it is recorded, else the email heuristic
func OrganizationOf(c Contact, found bool, email string) string {
	if found && !isBlank(c.Organization) {
		return strings.TrimSpace(c.Organization)
	}
	return PseudoOrganization(email)
}
