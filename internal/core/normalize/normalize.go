// Package normalize cleans free text before it is persisted
// Pipeline order
// 1 UTF-8 repair drop invalid bytes
// 2 drop control characters except tab and line breaks
// 3 Unicode NFC composition
// 4 collapse whitespace runs and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// pool of fresh transformer chains
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			runes.Remove(runes.Predicate(isJunk)),
			norm.NFC,
		)
	},
}

// isJunk reports C0/C1 controls and DEL, keeping tab, CR and LF
func isJunk(r rune) bool {
	switch r {
	case '\t', '\n', '\r':
		return false
	}
	return unicode.IsControl(r)
}

func clean(s string) string {
	s = strings.ToValidUTF8(s, "")
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// Sanitize drops invalid bytes and control characters, keeping layout
func Sanitize(s string) string {
	if s == "" {
		return s
	}
	return clean(s)
}

// Text cleans a multi-line body: blank-only lines collapse into one newline
// and space runs inside a line collapse to one space
func Text(s string) string {
	if s == "" {
		return s
	}
	return collapseSpaces(clean(s), true)
}

// Line cleans a single-line value such as a subject, name or email
// every whitespace run, line breaks included, becomes one space
func Line(s string) string {
	if s == "" {
		return s
	}
	return collapseSpaces(clean(s), false)
}

// collapseSpaces converts whitespace runs to a single ASCII space
// with keepNL, runs that contain a newline collapse to a single newline
func collapseSpaces(s string, keepNL bool) string {
	var b strings.Builder
	b.Grow(len(s))
	inWS, sawNL := false, false
	flush := func() {
		if !inWS {
			return
		}
		if sawNL && keepNL {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inWS, sawNL = false, false
	}
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			if r == '\n' || r == '\r' {
				sawNL = true
			}
			continue
		}
		flush()
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), " \n")
}
