package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeEmployeeCode upper-cases codes such as "emp-0042".
func NormalizeEmployeeCode(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
