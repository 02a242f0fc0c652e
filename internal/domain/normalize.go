package domain

import "strings"

// NormalizeTitle trims leading/trailing whitespace and collapses internal whitespace runs.
// It is used for list titles and item names before validation.
func NormalizeTitle(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeEmail trims whitespace and lowercases an email address.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
