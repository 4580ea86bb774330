package repo

import (
	"strings"

	"sentinel/internal/core/normalize"
	str "sentinel/internal/platform/strings"
	"sentinel/internal/services/tracker/domain"
)

const unknown = "unknown"

// prepare drops repeated shas (first wins) and cleans text fields for storage
func prepare(batch []domain.Contribution) []domain.Contribution {
	seen := make(map[string]struct{}, len(batch))
	out := make([]domain.Contribution, 0, len(batch))
	for _, c := range batch {
		if c.Sha == "" {
			continue
		}
		if _, dup := seen[c.Sha]; dup {
			continue
		}
		seen[c.Sha] = struct{}{}

		c.Author.Name = normalize.Line(c.Author.Name)
		c.Author.Email = strings.ToLower(normalize.Line(c.Author.Email))
		c.Author.Name = orUnknown(str.FirstNonBlank(c.Author.Name, c.Author.Email))
		c.Author.Email = orUnknown(c.Author.Email)
		c.Organization = orUnknown(normalize.Line(c.Organization))
		c.Spec = orUnknown(strings.ToLower(normalize.Line(c.Spec)))
		c.Message = normalize.Text(c.Message)
		c.URL = strings.TrimSpace(c.URL)
		c.Date = c.Date.UTC()
		out = append(out, c)
	}
	return out
}

func orUnknown(s string) string {
	if s == "" {
		return unknown
	}
	return s
}

// refs collects the distinct reference names of a prepared batch
type refs struct {
	trackers, specs, orgs []string
	authors               []domain.Author
}

func collectRefs(batch []domain.Contribution) refs {
	var r refs
	authorIdx := map[string]int{}
	for _, c := range batch {
		r.trackers = append(r.trackers, string(c.Tracker))
		r.specs = append(r.specs, c.Spec)
		r.orgs = append(r.orgs, c.Organization)
		if i, ok := authorIdx[c.Author.Name]; ok {
			if r.authors[i].Email == unknown && c.Author.Email != unknown {
				r.authors[i].Email = c.Author.Email
			}
			continue
		}
		authorIdx[c.Author.Name] = len(r.authors)
		r.authors = append(r.authors, c.Author)
	}
	r.trackers = str.Distinct(r.trackers)
	r.specs = str.Distinct(r.specs)
	r.orgs = str.Distinct(r.orgs)
	return r
}
