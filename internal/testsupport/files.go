package testsupport

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

// PNG returns an encoded solid-color image of the requested size.
func PNG(t testing.TB, width, height int) []byte {
	t.Helper()

	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	img := imaging.New(width, height, color.NRGBA{R: 40, G: 120, B: 60, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

// WriteImage writes a small PNG to path, creating parent directories.
func WriteImage(t testing.TB, path string) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, PNG(t, 16, 12), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
