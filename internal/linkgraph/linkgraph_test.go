package linkgraph

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flabwick/papyrus/internal/models"
)

func TestParseFindsOccurrencesInOrder(t *testing.T) {
	body := "See [[Project Plan]] and also [[Budget]].\n\nLater, [[Project Plan]] again."
	links := Parse(body)

	require.Len(t, links, 3)
	require.Equal(t, "Project Plan", links[0].Title)
	require.Equal(t, "Budget", links[1].Title)
	require.Equal(t, "Project Plan", links[2].Title)
	require.Less(t, links[0].Position, links[1].Position)
	require.Less(t, links[1].Position, links[2].Position)
}

func TestParseTrimsWhitespaceAndSkipsEmpty(t *testing.T) {
	links := Parse("[[  Spaced Title  ]] [[]] [[ ]]")
	require.Len(t, links, 1)
	require.Equal(t, "Spaced Title", links[0].Title)
}

func TestParseNoLinks(t *testing.T) {
	require.Empty(t, Parse("just plain text, no brackets"))
}

func TestHealthAllResolved(t *testing.T) {
	target := "page-1"
	links := []models.PageLink{
		{LinkText: "a", TargetPageID: &target},
		{LinkText: "b", TargetPageID: &target},
	}
	require.Equal(t, 1.0, Health(links))
}

func TestHealthPartiallyBroken(t *testing.T) {
	target := "page-1"
	links := []models.PageLink{
		{LinkText: "a", TargetPageID: &target},
		{LinkText: "b", TargetPageID: nil},
	}
	require.Equal(t, 0.5, Health(links))
}

func TestHealthNoLinksIsPerfect(t *testing.T) {
	require.Equal(t, 1.0, Health(nil))
}
