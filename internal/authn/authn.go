// Package authn hashes and verifies User passwords. It has no pack
// precedent to ground on: no example repo needs password storage, so this
// is the one place the transformation reaches past the retrieved corpus to
// an ecosystem-standard library (see DESIGN.md).
package authn

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/flabwick/papyrus/internal/apperr"
)

// HashPassword bcrypt-hashes password at the library's default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", apperr.Wrap(apperr.KindProcessingError, "password", err)
	}
	return string(hash), nil
}

// ComparePassword reports whether password matches hash, returning
// Unauthorized (not a bare bool) so callers can return it directly.
func ComparePassword(hash, password string) error {
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return apperr.Unauthorized("invalid username or password")
	}
	return nil
}
