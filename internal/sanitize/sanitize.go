// Package sanitize canonicalizes user-supplied names into safe filesystem
// segments (§4.1). Pure functions, no I/O.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/flabwick/papyrus/internal/apperr"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	invalidChars  = regexp.MustCompile(`[^a-z0-9-]`)
	dashRun       = regexp.MustCompile(`-+`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9-]{3,20}$`)
)

const (
	MinLibraryNameLen = 1
	MaxLibraryNameLen = 50
)

// Slug lowercases name, replaces whitespace with '-', strips characters
// outside [a-z0-9-], collapses runs of '-', and trims leading/trailing '-'.
// Returns *apperr.Error{Kind: InvalidName} (modeled as ValidationError) when
// the result is empty or the input violates length bounds.
func Slug(name string) (string, error) {
	if len(name) < MinLibraryNameLen || len(name) > MaxLibraryNameLen {
		return "", apperr.Validation("library name length out of bounds", map[string]string{
			"name": "must be 1-50 characters",
		})
	}

	s := strings.ToLower(strings.TrimSpace(name))
	s = whitespaceRun.ReplaceAllString(s, "-")
	s = invalidChars.ReplaceAllString(s, "")
	s = dashRun.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")

	if s == "" {
		return "", apperr.Validation("name sanitizes to empty slug", map[string]string{
			"name": "contains no valid characters",
		})
	}
	return s, nil
}

// ValidateUsername checks the §3 username contract (3-20 of [A-Za-z0-9-])
// without transforming it.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) {
		return apperr.Validation("invalid username", map[string]string{
			"username": "must be 3-20 characters of [A-Za-z0-9-]",
		})
	}
	return nil
}
