// Package spectag pulls specification short names out of bracketed tags
// e.g. "Re: [css3-flexbox-1] clarify gap" → flexbox
package spectag

import (
	"regexp"
	"strings"
)

// Unknown is the tag for text without a recognizable bracket
const Unknown = "unknown"

// one bracket group; alternatives in priority order
//   - module:  [css3-flexbox], [css3-flexbox-1], [css-grid]
//   - level:   [css21], [css2.1]
//   - name:    [selectors], [cssom-*]
var tagRE = regexp.MustCompile(`(?i)\[\s*(?:css[0-9]{0,2}\s*-\s*(?P<module>[-a-z0-9@]+?)(?:-[0-9]+)?|(?P<level>css[0-9]{1,2}(?:\.?[0-9]+))|(?P<name>[a-z*-]+))\s*\]`)

var (
	moduleIdx = tagRE.SubexpIndex("module")
	levelIdx  = tagRE.SubexpIndex("level")
	nameIdx   = tagRE.SubexpIndex("name")
)

// All returns every tag in text left to right, lower-cased and de-duplicated
// text without tags yields []string{Unknown}
func All(text string) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, m := range tagRE.FindAllStringSubmatch(text, -1) {
		tag := pick(m)
		if tag == "" {
			continue
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) == 0 {
		return []string{Unknown}
	}
	return out
}

// First returns the leftmost tag in text or Unknown
func First(text string) string {
	m := tagRE.FindStringSubmatch(text)
	if m == nil {
		return Unknown
	}
	if tag := pick(m); tag != "" {
		return tag
	}
	return Unknown
}

// Matches reports whether text carries at least one tag
func Matches(text string) bool { return tagRE.MatchString(text) }

func pick(m []string) string {
	for _, i := range [...]int{moduleIdx, levelIdx, nameIdx} {
		if m[i] != "" {
			return strings.ToLower(m[i])
		}
	}
	return ""
}
