// Package hashutil computes SHA-256 content hashes for change detection (§4.2).
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/flabwick/papyrus/internal/apperr"
)

// HashFile returns the lowercase 64-hex SHA-256 digest of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperr.Storage(path, err)
	}
	defer f.Close()

	return HashReader(f)
}

// HashReader returns the lowercase 64-hex SHA-256 digest of r's bytes.
func HashReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", apperr.Storage("", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashBytes returns the lowercase 64-hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
