// Package randid generates short random identifiers.
package randid

import (
	"math/rand/v2"
	"strings"
)

const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// Generate creates a random lowercase alphanumeric ID of the given length.
func Generate(length int) string {
	b := make([]byte, length)
	for i := range b {
		b[i] = alphabet[rand.IntN(len(alphabet))]
	}
	return string(b)
}

// Suffixed appends a random suffix of length n to base, joined by '-'.
// An empty base yields just the suffix.
func Suffixed(base string, n int) string {
	base = strings.Trim(base, "-")
	if base == "" {
		return Generate(n)
	}
	return base + "-" + Generate(n)
}
