package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"cashcue/internal/services"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{10, 200, 30, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func decodeBounds(t *testing.T, data []byte) image.Rectangle {
	t.Helper()
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("format = %s, want jpeg", format)
	}
	return img.Bounds()
}

func TestPrepareImageFitsLongestEdge(t *testing.T) {
	out, err := PrepareImage(bytes.NewReader(encodePNG(t, 400, 200)), 100)
	if err != nil {
		t.Fatalf("PrepareImage returned error: %v", err)
	}
	if b := decodeBounds(t, out); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("bounds = %v, want 100x50", b)
	}
}

func TestPrepareImageKeepsSmallImages(t *testing.T) {
	out, err := PrepareImage(bytes.NewReader(encodePNG(t, 64, 48)), 1280)
	if err != nil {
		t.Fatalf("PrepareImage returned error: %v", err)
	}
	if b := decodeBounds(t, out); b.Dx() != 64 || b.Dy() != 48 {
		t.Fatalf("bounds = %v, want 64x48", b)
	}
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	_, err := PrepareImage(strings.NewReader("not an image"), 0)
	if !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestLoadImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bill.png")
	if err := os.WriteFile(path, encodePNG(t, 20, 10), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadImage(path, 0); err != nil {
		t.Fatalf("LoadImage returned error: %v", err)
	}
	if _, err := LoadImage(filepath.Join(t.TempDir(), "missing.png"), 0); !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable for missing file, got %v", err)
	}
}

func TestIsSupportedImage(t *testing.T) {
	tests := map[string]bool{
		"a.JPG":     true,
		"b.png":     true,
		"c.txt":     false,
		"noext":     false,
		"d.jpeg.gz": false,
	}
	for name, want := range tests {
		if got := IsSupportedImage(name); got != want {
			t.Errorf("IsSupportedImage(%q) = %v, want %v", name, got, want)
		}
	}
}
