package common

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode/utf8"
)

// RedactPII returns a SHA-256 hash of the input string so log lines can be
// correlated without carrying tokens or identifiers.
func RedactPII(s string) string {
	if s == "" {
		return ""
	}
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

// MaskIdentifier keeps the last four characters of a national ID or
// commercial record number.
func MaskIdentifier(s string) string {
	n := utf8.RuneCountInString(s)
	if n <= 4 {
		return strings.Repeat("*", n)
	}
	r := []rune(s)
	return strings.Repeat("*", n-4) + string(r[n-4:])
}
