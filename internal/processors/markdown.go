package processors

import (
	"bytes"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/flabwick/papyrus/internal/models"
)

// MarkdownProcessor extracts a title, frontmatter, and simple statistics
// from markdown/text content (§4.3).
type MarkdownProcessor struct{}

var (
	headingPattern  = regexp.MustCompile(`(?m)^#{1,6}\s+\S`)
	wikiLinkPattern = regexp.MustCompile(`\[\[([^\]\n]+)\]\]`)
	hashtagPattern  = regexp.MustCompile(`(?:^|\s)#([A-Za-z0-9_-]+)`)
)

func (MarkdownProcessor) Validate(data []byte) error {
	return nil // any byte sequence is "valid" text; decode() decides readability
}

func (p MarkdownProcessor) Process(data []byte, filename string) Result {
	text, ok := decodeText(data)
	if !ok {
		return Result{
			ProcessingStatus: models.ProcessingFailed,
			ProcessingError:  "file is not readable text (binary content or unsupported encoding)",
		}
	}

	front, body := extractFrontmatter(text)

	title := front["title"]
	if title == "" {
		title = firstShortLine(body)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	}

	tags := extractHashtags(body)

	return Result{
		Title:            title,
		Preview:          preview(body, 280),
		ProcessingStatus: models.ProcessingComplete,
		WordCount:        len(strings.Fields(body)),
		HeadingCount:     len(headingPattern.FindAllString(body, -1)),
		LinkCount:        len(wikiLinkPattern.FindAllString(body, -1)),
		Tags:             tags,
	}
}

func (p MarkdownProcessor) PreviewText(r Result) string { return r.Preview }

// decodeText sniffs BOM-aware encodings (UTF-8, UTF-16 LE/BE) and rejects
// files whose first 1KB contains >1% NUL bytes or >10% non-printable bytes.
func decodeText(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xFE}):
		return decodeUTF16(data[2:], false), true
	case bytes.HasPrefix(data, []byte{0xFE, 0xFF}):
		return decodeUTF16(data[2:], true), true
	case bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}):
		data = data[3:]
	}

	sample := data
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	var nulCount, nonPrintable int
	for _, b := range sample {
		if b == 0 {
			nulCount++
		} else if b < 0x09 || (b > 0x0D && b < 0x20 && b != 0x1B) {
			nonPrintable++
		}
	}
	if len(sample) > 0 {
		if float64(nulCount)/float64(len(sample)) > 0.01 {
			return "", false
		}
		if float64(nonPrintable)/float64(len(sample)) > 0.10 {
			return "", false
		}
	}
	if !utf8.Valid(data) {
		return "", false
	}
	return string(data), true
}

func decodeUTF16(data []byte, bigEndian bool) string {
	if len(data)%2 != 0 {
		data = data[:len(data)-1]
	}
	units := make([]uint16, 0, len(data)/2)
	for i := 0; i+1 < len(data); i += 2 {
		if bigEndian {
			units = append(units, uint16(data[i])<<8|uint16(data[i+1]))
		} else {
			units = append(units, uint16(data[i+1])<<8|uint16(data[i]))
		}
	}
	return string(utf16.Decode(units))
}

// extractFrontmatter parses a leading "---\n...\n---\n" block of simple
// "key: value" pairs within the first 4KB, per §4.3.
func extractFrontmatter(text string) (map[string]string, string) {
	fields := map[string]string{}
	if !strings.HasPrefix(text, "---") {
		return fields, text
	}

	limit := len(text)
	if limit > 4096 {
		limit = 4096
	}
	window := text[:limit]

	lines := strings.Split(window, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return fields, text
	}

	closeIdx := -1
	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			closeIdx = i
			break
		}
	}
	if closeIdx < 0 {
		return fields, text
	}

	for _, line := range lines[1:closeIdx] {
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		val := strings.TrimSpace(parts[1])
		val = strings.Trim(val, `"'`)
		fields[key] = val
	}

	// Body starts after the closing "---" line, counted back against the
	// original (un-truncated) text.
	consumed := 0
	for i := 0; i <= closeIdx; i++ {
		consumed += len(lines[i]) + 1
	}
	if consumed > len(text) {
		consumed = len(text)
	}
	return fields, strings.TrimLeft(text[consumed:], "\n")
}

// firstShortLine returns the first non-empty line of at most 100 runes with no
// leading punctuation, used as a title fallback.
func firstShortLine(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		trimmed := strings.TrimLeft(line, "#*->-  \t")
		if trimmed == "" {
			continue
		}
		if utf8.RuneCountInString(trimmed) > 100 {
			continue
		}
		r := []rune(trimmed)[0]
		if unicode.IsPunct(r) {
			continue
		}
		return trimmed
	}
	return ""
}

func extractHashtags(body string) []string {
	seen := map[string]bool{}
	var tags []string
	for _, m := range hashtagPattern.FindAllStringSubmatch(body, -1) {
		tag := strings.ToLower(m[1])
		if !seen[tag] {
			seen[tag] = true
			tags = append(tags, tag)
		}
	}
	return tags
}

func preview(body string, n int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= n {
		return body
	}
	return string(runes[:n])
}
