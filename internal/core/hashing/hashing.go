// Package hashing computes the content hashes used as contribution identities
//
// A hash is the SHA-1 of the UTF-16LE (no BOM) encoding of the text, as 40 lowercase hex chars.
// The encoding is part of the identity: stored hashes from earlier runs only match when it never changes.
package hashing

import (
	"crypto/sha1"
	"encoding/hex"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Sum returns the content hash of text
func Sum(text string) string {
	b, err := utf16le.NewEncoder().Bytes([]byte(text))
	if err != nil {
		// invalid UTF-8 is replaced rather than rejected, so this only trips on encoder bugs
		panic("hashing: utf16 encode: " + err.Error())
	}
	d := sha1.Sum(b)
	return hex.EncodeToString(d[:])
}

// Key hashes the concatenation of parts, e.g. Key(url, tag)
func Key(parts ...string) string { return Sum(strings.Join(parts, "")) }
