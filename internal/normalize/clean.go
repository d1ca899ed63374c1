// Package normalize applies the deterministic cleanup pass that runs on
// every record between extraction and persistence.
package normalize

import (
	"crypto/sha1"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	disallowedPattern = regexp.MustCompile(`[^\x{4e00}-\x{9fa5}a-zA-Z0-9\s]`)
)

// CleanText strips markup, restricts the charset to CJK ideographs,
// Latin letters, digits and whitespace, trims, and lower-cases. It is
// idempotent.
func CleanText(raw string) string {
	s := tagPattern.ReplaceAllString(raw, "")
	s = disallowedPattern.ReplaceAllString(s, "")
	return strings.ToLower(strings.TrimSpace(s))
}

// TextHash fingerprints cleaned text so listing-sourced records, which
// have no natural key, stay content-addressable downstream.
func TextHash(clean string) string {
	sum := sha1.Sum([]byte(clean))
	return hex.EncodeToString(sum[:])
}
