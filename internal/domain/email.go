package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// NormalizeEmail returns the comparison form of an email address:
// trimmed, NFKC-normalized and Unicode case-folded.
// The address as typed is kept for display; uniqueness uses this form.
func NormalizeEmail(email string) string {
	return foldString(strings.TrimSpace(email))
}

// FoldContains reports whether needle occurs in haystack ignoring case,
// using full Unicode case folding rather than ASCII lowering.
func FoldContains(haystack, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(foldString(haystack), foldString(needle))
}

// foldString builds a fresh Caser per call; a Caser is stateful and must not be shared across goroutines.
func foldString(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}
