package sanitize

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlug(t *testing.T) {
	cases := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "lowercases and dashes", input: "My Notes", want: "my-notes"},
		{name: "collapses whitespace runs", input: "My    Big   Notes", want: "my-big-notes"},
		{name: "strips invalid chars", input: "Notes!!! 2024 (v2)", want: "notes-2024-v2"},
		{name: "trims leading/trailing dashes", input: "  -hello-  ", want: "hello"},
		{name: "empty after sanitizing is rejected", input: "!!!", wantErr: true},
		{name: "too long is rejected", input: string(make([]byte, 51)), wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Slug(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestValidateUsername(t *testing.T) {
	require.NoError(t, ValidateUsername("alice-99"))
	require.Error(t, ValidateUsername("ab"))
	require.Error(t, ValidateUsername("has spaces"))
	require.Error(t, ValidateUsername("waytoolongusernamehere123"))
}
