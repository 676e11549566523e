// Package processors implements the per-kind file processors of §4.3.
// Dispatch is by file extension onto a flat capability set (§9 design note:
// "avoid deep inheritance; keep processors flat and selected by file
// extension"), never a type hierarchy.
package processors

import (
	"strings"

	"github.com/flabwick/papyrus/internal/models"
)

// Result is the uniform outcome every processor returns: a canonical title,
// a human-readable preview, a structured metadata bag, and whether
// extraction succeeded.
type Result struct {
	Title            string
	Preview          string
	Metadata         models.FileMetadata
	CoverImageBytes  []byte // non-nil when the processor extracted a cover (EPUB)
	CoverImageExt    string
	ProcessingStatus models.ProcessingStatus
	ProcessingError  string

	// Markdown-only derived fields
	WordCount    int
	HeadingCount int
	LinkCount    int
	Tags         []string
}

// Processor is the capability set every file kind implements (§9).
type Processor interface {
	// Validate reports whether data looks like a well-formed instance of
	// this processor's kind (e.g. ZIP signature for EPUB).
	Validate(data []byte) error
	// Process extracts metadata and a preview from data. It never returns
	// an error for content that merely fails to parse — instead it returns
	// a Result with ProcessingStatus == ProcessingFailed and the reason in
	// ProcessingError, since the File row must still be created (§4.3 PDF
	// rule, generalized to all kinds).
	Process(data []byte, filename string) Result
	// PreviewText renders a short human-readable summary for display.
	PreviewText(r Result) string
}

// ForExtension dispatches to the Processor that handles filename's
// extension, and the FileType it corresponds to. ok is false for
// unsupported extensions (§7 UnsupportedFileType).
func ForExtension(filename string) (Processor, models.FileType, bool) {
	ext := strings.ToLower(strings.TrimPrefix(pathExt(filename), "."))
	switch ext {
	case "md", "markdown", "txt", "text":
		return MarkdownProcessor{}, "", true // markdown/text pages aren't Files
	case "pdf":
		return PDFProcessor{}, models.FileTypePDF, true
	case "epub":
		return EPUBProcessor{}, models.FileTypeEPUB, true
	case "jpg", "jpeg", "png":
		return ImageProcessor{}, models.FileTypeImage, true
	default:
		return nil, "", false
	}
}

func pathExt(filename string) string {
	idx := strings.LastIndexByte(filename, '.')
	if idx < 0 {
		return ""
	}
	return filename[idx:]
}
