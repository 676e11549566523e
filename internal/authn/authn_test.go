package authn

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flabwick/papyrus/internal/apperr"
)

func TestHashAndComparePasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)
	require.NotEqual(t, "correct horse battery staple", hash)

	require.NoError(t, ComparePassword(hash, "correct horse battery staple"))
}

func TestComparePasswordRejectsWrongPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	err = ComparePassword(hash, "wrong password")
	require.Error(t, err)
	aerr, ok := apperr.As(err)
	require.True(t, ok)
	require.Equal(t, apperr.KindUnauthorized, aerr.Kind)
}
