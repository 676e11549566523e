package processors

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/flabwick/papyrus/internal/models"
)

// EPUBProcessor extracts package metadata and the cover image from an EPUB
// container (§4.3). EPUB is itself a ZIP archive holding OPF/OPS XML, so this
// is built on stdlib archive/zip + encoding/xml; no retrieved repo imports an
// EPUB-specific library (see DESIGN.md).
type EPUBProcessor struct{}

func (EPUBProcessor) Validate(data []byte) error {
	if len(data) < 4 || !bytes.HasPrefix(data, []byte("PK\x03\x04")) {
		return &validationErr{"not an EPUB file (missing ZIP signature)"}
	}
	return nil
}

type epubContainer struct {
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Metadata struct {
		Title       []string `xml:"title"`
		Creator     []string `xml:"creator"`
		Publisher   []string `xml:"publisher"`
		Language    []string `xml:"language"`
		Description []string `xml:"description"`
		Identifier  []struct {
			Scheme string `xml:"scheme,attr"`
			Value  string `xml:",chardata"`
		} `xml:"identifier"`
		Date []string `xml:"date"`
		Meta []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"metadata"`
	Manifest struct {
		Items []struct {
			ID         string `xml:"id,attr"`
			Href       string `xml:"href,attr"`
			MediaType  string `xml:"media-type,attr"`
			Properties string `xml:"properties,attr"`
		} `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		TOC   string `xml:"toc,attr"`
		Items []struct {
			IDRef string `xml:"idref,attr"`
		} `xml:"itemref"`
	} `xml:"spine"`
}

func (p EPUBProcessor) Process(data []byte, filename string) Result {
	if err := p.Validate(data); err != nil {
		return Result{ProcessingStatus: models.ProcessingFailed, ProcessingError: err.Error()}
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{ProcessingStatus: models.ProcessingFailed, ProcessingError: fmt.Sprintf("open zip: %v", err)}
	}

	containerData, err := readZipFile(zr, "META-INF/container.xml")
	if err != nil {
		return Result{ProcessingStatus: models.ProcessingFailed, ProcessingError: fmt.Sprintf("read container.xml: %v", err)}
	}
	var container epubContainer
	if err := xml.Unmarshal(containerData, &container); err != nil || len(container.RootFiles) == 0 {
		return Result{ProcessingStatus: models.ProcessingFailed, ProcessingError: "container.xml: no rootfile entry"}
	}
	opfPath := container.RootFiles[0].FullPath

	opfData, err := readZipFile(zr, opfPath)
	if err != nil {
		return Result{ProcessingStatus: models.ProcessingFailed, ProcessingError: fmt.Sprintf("read package document: %v", err)}
	}
	var pkg epubPackage
	if err := xml.Unmarshal(opfData, &pkg); err != nil {
		return Result{ProcessingStatus: models.ProcessingFailed, ProcessingError: fmt.Sprintf("parse package document: %v", err)}
	}

	meta := models.FileMetadata{
		EPUBTitle:     first(pkg.Metadata.Title),
		EPUBAuthor:    first(pkg.Metadata.Creator),
		EPUBPublisher: first(pkg.Metadata.Publisher),
		EPUBLanguage:  first(pkg.Metadata.Language),
		EPUBDescription: first(pkg.Metadata.Description),
		EPUBChapters:  len(pkg.Spine.Items),
		EPUBHasTOC:    pkg.Spine.TOC != "" || hasNavItem(pkg.Manifest.Items),
	}
	for _, id := range pkg.Metadata.Identifier {
		if strings.Contains(strings.ToLower(id.Scheme), "isbn") {
			meta.EPUBISBN = id.Value
			break
		}
	}
	if meta.EPUBISBN == "" && len(pkg.Metadata.Identifier) > 0 {
		meta.EPUBISBN = pkg.Metadata.Identifier[0].Value
	}

	opfDir := path.Dir(opfPath)
	var coverBytes []byte
	var coverExt string
	if href := findCoverHref(pkg); href != "" {
		coverPath := path.Join(opfDir, href)
		if b, err := readZipFile(zr, coverPath); err == nil {
			coverBytes = b
			coverExt = strings.ToLower(path.Ext(href))
			meta.EPUBHasImages = true
		}
	}
	if !meta.EPUBHasImages {
		meta.EPUBHasImages = hasAnyImage(pkg.Manifest.Items)
	}

	title := meta.EPUBTitle
	if title == "" {
		title = filename
	}

	return Result{
		Title:            title,
		Preview:          meta.EPUBDescription,
		Metadata:         meta,
		CoverImageBytes:  coverBytes,
		CoverImageExt:    coverExt,
		ProcessingStatus: models.ProcessingComplete,
	}
}

func (p EPUBProcessor) PreviewText(r Result) string { return r.Preview }

func first(ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return strings.TrimSpace(ss[0])
}

func hasNavItem(items []struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}) bool {
	for _, it := range items {
		if strings.Contains(it.Properties, "nav") || it.ID == "ncx" || it.ID == "toc" {
			return true
		}
	}
	return false
}

func hasAnyImage(items []struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}) bool {
	for _, it := range items {
		if strings.HasPrefix(it.MediaType, "image/") {
			return true
		}
	}
	return false
}

func findCoverHref(pkg epubPackage) string {
	var coverID string
	for _, m := range pkg.Metadata.Meta {
		if m.Name == "cover" {
			coverID = m.Content
			break
		}
	}
	for _, it := range pkg.Manifest.Items {
		if strings.Contains(it.Properties, "cover-image") {
			return it.Href
		}
		if coverID != "" && it.ID == coverID {
			return it.Href
		}
	}
	return ""
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			defer rc.Close()
			return io.ReadAll(rc)
		}
	}
	return nil, fmt.Errorf("not found in archive: %s", name)
}
