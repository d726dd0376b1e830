// Package visitor derives day-scoped pseudonymous visitor identifiers.
//
// The identifier is sha256(addr-ua-date) truncated to 16 hex characters.
// Because the current UTC date is part of the digest input, the same visitor
// hashes to a different value every day; the raw address and user agent are
// never stored anywhere.
package visitor

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

const Unknown = "unknown"

// DateKey formats t as the UTC yyyy-mm-dd key used for all daily records.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Hash returns the visitor identifier for the given network address and user
// agent on the calendar day of t. Empty inputs fall back to "unknown"; the
// function always produces a value.
func Hash(addr, ua string, t time.Time) string {
	if addr == "" {
		addr = Unknown
	}
	if ua == "" {
		ua = Unknown
	}
	sum := sha256.Sum256([]byte(addr + "-" + ua + "-" + DateKey(t)))
	return hex.EncodeToString(sum[:])[:16]
}
