package contentstore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCreateLibraryTree(t *testing.T) {
	root := t.TempDir()
	s := New(root)

	require.NoError(t, s.CreateUserTree("alice"))
	require.NoError(t, s.CreateLibraryTree("alice", "notes"))

	for _, dir := range []string{
		s.PagesDir("alice", "notes"),
		s.FilesDir("alice", "notes"),
		s.CoversDir("alice", "notes"),
	} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		require.True(t, info.IsDir())
	}
}

func TestScanLibrary(t *testing.T) {
	root := t.TempDir()
	s := New(root)
	require.NoError(t, s.CreateUserTree("alice"))
	require.NoError(t, s.CreateLibraryTree("alice", "notes"))

	pagePath := filepath.Join(s.PagesDir("alice", "notes"), "Inbox.md")
	require.NoError(t, os.WriteFile(pagePath, []byte("Hello [[Todo]]"), 0o644))

	filePath := filepath.Join(s.FilesDir("alice", "notes"), "book.epub")
	require.NoError(t, os.WriteFile(filePath, []byte("fake epub bytes"), 0o644))

	coverPath := filepath.Join(s.CoversDir("alice", "notes"), "book_cover.jpg")
	require.NoError(t, os.WriteFile(coverPath, []byte("jpg bytes"), 0o644))

	scanned, err := s.ScanLibrary("alice", "notes")
	require.NoError(t, err)
	require.Len(t, scanned, 2, "covers/ must be excluded from the scan")

	byCategory := map[string]ScannedFile{}
	for _, f := range scanned {
		byCategory[f.Category] = f
	}
	require.Equal(t, "Inbox", byCategory["page"].Name)
	require.Equal(t, "book.epub", byCategory["file"].Name)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "book.pdf")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))

	got := UniquePath(existing)
	require.Equal(t, filepath.Join(dir, "book_1.pdf"), got)
}

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, WriteAtomic(path, []byte(`{"a":1}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.JSONEq(t, `{"a":1}`, string(data))
}
