package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"cashcue/internal/services"
)

const jpegQuality = 90

// PrepareImage decodes r, applies EXIF orientation, shrinks the image to fit
// within maxEdge pixels on its longest side, and re-encodes it as JPEG. A
// maxEdge of zero keeps the original size.
func PrepareImage(r io.Reader, maxEdge int) ([]byte, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", "decode image", "unsupported or corrupt image", err)
	}
	bounds := img.Bounds()
	if maxEdge > 0 && (bounds.Dx() > maxEdge || bounds.Dy() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", "encode image", "", err)
	}
	return buf.Bytes(), nil
}

// LoadImage reads an image file from disk and prepares it for inference.
func LoadImage(path string, maxEdge int) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", "open image", path, err)
	}
	defer file.Close()
	data, err := PrepareImage(file, maxEdge)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// IsSupportedImage reports whether name has an extension the decoder accepts.
func IsSupportedImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}
