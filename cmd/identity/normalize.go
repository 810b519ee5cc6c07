package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization. Lookups always go
// through the normalized form so that login and password-reset see the same
// user regardless of input casing.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
