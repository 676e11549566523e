package processors

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/flabwick/papyrus/internal/models"
)

// ImageProcessor extracts dimensions from jpg/jpeg/png uploads using
// disintegration/imaging, falling back to size-only metadata when the
// bytes don't decode as a known image format (§4.3).
type ImageProcessor struct{}

func (ImageProcessor) Validate(data []byte) error {
	if len(data) == 0 {
		return &validationErr{"empty image file"}
	}
	return nil
}

func (p ImageProcessor) Process(data []byte, filename string) Result {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return Result{
			Title:            filename,
			ProcessingStatus: models.ProcessingComplete,
			Preview:          fmt.Sprintf("%d bytes (dimensions unavailable: %v)", len(data), err),
			Metadata:         models.FileMetadata{},
		}
	}

	bounds := img.Bounds()
	meta := models.FileMetadata{
		ImageWidth:  bounds.Dx(),
		ImageHeight: bounds.Dy(),
		ImageFormat: formatFromFilename(filename),
	}

	return Result{
		Title:            filename,
		Preview:          fmt.Sprintf("%dx%d %s image", meta.ImageWidth, meta.ImageHeight, meta.ImageFormat),
		Metadata:         meta,
		ProcessingStatus: models.ProcessingComplete,
	}
}

func (p ImageProcessor) PreviewText(r Result) string { return r.Preview }

func formatFromFilename(filename string) string {
	ext := pathExt(filename)
	if len(ext) > 1 {
		return ext[1:]
	}
	return "unknown"
}

// ResizeCover produces a cover-thumbnail for an EPUB/PDF cover image,
// fitting it within maxW x maxH while preserving aspect ratio.
func ResizeCover(data []byte, maxW, maxH int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}
	resized := imaging.Fit(img, maxW, maxH, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, resized, imaging.JPEG); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
