package processors

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flabwick/papyrus/internal/models"
)

func TestMarkdownProcessorFrontmatter(t *testing.T) {
	content := "---\ntitle: My Page\ntags: a, b\n---\nHello [[Todo]] world. #life\n"
	r := MarkdownProcessor{}.Process([]byte(content), "inbox.md")

	require.Equal(t, models.ProcessingComplete, r.ProcessingStatus)
	require.Equal(t, "My Page", r.Title)
	require.Equal(t, 1, r.LinkCount)
	require.Contains(t, r.Tags, "life")
}

func TestMarkdownProcessorFallbackTitle(t *testing.T) {
	r := MarkdownProcessor{}.Process([]byte("Quick Capture\nsome body text"), "note.md")
	require.Equal(t, "Quick Capture", r.Title)
}

func TestMarkdownProcessorFallbackToFilename(t *testing.T) {
	r := MarkdownProcessor{}.Process([]byte(""), "empty-note.md")
	require.Equal(t, "empty-note", r.Title)
}

func TestMarkdownProcessorRejectsBinary(t *testing.T) {
	binary := make([]byte, 2000)
	for i := range binary {
		binary[i] = byte(i % 256)
	}
	r := MarkdownProcessor{}.Process(binary, "blob.md")
	require.Equal(t, models.ProcessingFailed, r.ProcessingStatus)
}

func TestForExtensionDispatch(t *testing.T) {
	_, _, ok := ForExtension("notes.md")
	require.True(t, ok)

	_, ft, ok := ForExtension("book.EPUB")
	require.True(t, ok)
	require.Equal(t, models.FileTypeEPUB, ft)

	_, _, ok = ForExtension("archive.zip")
	require.False(t, ok)
}
