package processors

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/flabwick/papyrus/internal/models"
)

// PDFProcessor extracts page count, document-info metadata, and a best-effort
// text preview directly from the PDF byte structure (§4.3). No retrieved
// example repo imports a PDF-specific library with real (non-test) usage, so
// this walks the trailer/Info-dictionary/page-tree structures by hand; see
// DESIGN.md for why this stays on the standard library.
type PDFProcessor struct{}

var (
	pdfPageTypePattern = regexp.MustCompile(`/Type\s*/Page[^s]`)
	pdfInfoStringField = func(key string) *regexp.Regexp {
		return regexp.MustCompile(`/` + key + `\s*\(([^()]*)\)`)
	}
	pdfTitlePattern    = pdfInfoStringField("Title")
	pdfAuthorPattern   = pdfInfoStringField("Author")
	pdfSubjectPattern  = pdfInfoStringField("Subject")
	pdfCreatorPattern  = pdfInfoStringField("Creator")
	pdfProducerPattern = pdfInfoStringField("Producer")
	pdfTextShowPattern = regexp.MustCompile(`\(((?:[^()\\]|\\.)*)\)\s*Tj`)
)

func (PDFProcessor) Validate(data []byte) error {
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		return errNotPDF
	}
	return nil
}

var errNotPDF = &validationErr{"not a PDF file (missing %PDF- signature)"}

type validationErr struct{ msg string }

func (e *validationErr) Error() string { return e.msg }

func (p PDFProcessor) Process(data []byte, filename string) Result {
	if err := p.Validate(data); err != nil {
		return Result{
			ProcessingStatus: models.ProcessingFailed,
			ProcessingError:  err.Error(),
		}
	}

	meta := models.FileMetadata{
		PDFPageCount: len(pdfPageTypePattern.FindAll(data, -1)),
		PDFTitle:     firstMatch(pdfTitlePattern, data),
		PDFAuthor:    firstMatch(pdfAuthorPattern, data),
		PDFSubject:   firstMatch(pdfSubjectPattern, data),
		PDFCreator:   firstMatch(pdfCreatorPattern, data),
		PDFProducer:  firstMatch(pdfProducerPattern, data),
	}

	text := extractPDFText(data)
	title := meta.PDFTitle
	if title == "" {
		title = filename
	}

	return Result{
		Title:            title,
		Preview:          preview(text, 280),
		Metadata:         meta,
		ProcessingStatus: models.ProcessingComplete,
	}
}

func (p PDFProcessor) PreviewText(r Result) string { return r.Preview }

func firstMatch(re *regexp.Regexp, data []byte) string {
	m := re.FindSubmatch(data)
	if m == nil {
		return ""
	}
	return unescapePDFString(string(m[1]))
}

func unescapePDFString(s string) string {
	s = strings.ReplaceAll(s, `\(`, "(")
	s = strings.ReplaceAll(s, `\)`, ")")
	s = strings.ReplaceAll(s, `\\`, `\`)
	return s
}

// extractPDFText does a best-effort scan for "(text) Tj" show-text operators
// across the raw byte stream. It will not decode compressed content streams;
// it is a preview aid, not a full-text index (full-text search is an
// explicit non-goal, §1).
func extractPDFText(data []byte) string {
	var sb strings.Builder
	for _, m := range pdfTextShowPattern.FindAllSubmatch(data, 2000) {
		sb.WriteString(unescapePDFString(string(m[1])))
		sb.WriteByte(' ')
		if sb.Len() > 8192 {
			break
		}
	}
	return sb.String()
}
