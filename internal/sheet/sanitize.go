package sheet

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	invalidRe    = regexp.MustCompile(`[^A-Za-z0-9_]`)
	identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// Sanitize normalizes arbitrary user text into a safe identifier:
// trims, collapses internal whitespace to underscores, strips anything
// outside [A-Za-z0-9_] and lower-cases. Returns InvalidNameError if the
// input is empty or sanitization yields an empty string.
func Sanitize(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", &InvalidNameError{Raw: raw}
	}
	s = whitespaceRe.ReplaceAllString(s, "_")
	s = invalidRe.ReplaceAllString(s, "")
	s = strings.ToLower(s)
	if s == "" {
		return "", &InvalidNameError{Raw: raw}
	}
	return s, nil
}

// IsValidIdentifier reports whether s is a well-formed SQL identifier.
// Used to gate table-name availability checks before they touch storage.
func IsValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
