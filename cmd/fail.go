package cmd

import (
	"fmt"
	"os"

	"github.com/flabwick/papyrus/internal/apperr"
)

// Fail prints err and exits with the code §6 assigns to its apperr.Kind: 0
// is never reached here (success paths don't call Fail), 1 for a user
// error (bad input, not found, unauthorized, conflict...), 2 for a system
// error (storage failure, unclassified error).
func Fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(exitCodeFor(err))
}

func exitCodeFor(err error) int {
	aerr, ok := apperr.As(err)
	if !ok {
		return 2
	}
	switch aerr.Kind {
	case apperr.KindNotFound, apperr.KindForbidden, apperr.KindConflict,
		apperr.KindValidationError, apperr.KindUnsupportedFile, apperr.KindRateLimited,
		apperr.KindUnauthorized, apperr.KindQuotaExceeded:
		return 1
	default:
		return 2
	}
}
