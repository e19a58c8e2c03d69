package source

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(1, 1, color.Gray{Y: 0})

	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestImageSourceDirectory(t *testing.T) {
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "b.png"), 20, 10)
	writePNG(t, filepath.Join(dir, "a.png"), 30, 15)
	os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0644)

	src, err := Open(dir)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer src.Close()

	if src.PageCount() != 2 {
		t.Fatalf("expected 2 pages, got %d", src.PageCount())
	}

	img, err := src.RenderPage(0, 0)
	if err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	// Sorted by name: a.png comes first.
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 15 {
		t.Errorf("unexpected first page size %v", b)
	}

	if _, err := src.RenderPage(2, 0); !errors.Is(err, ErrPageRange) {
		t.Errorf("expected ErrPageRange, got %v", err)
	}
}

func TestOpenErrors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}

	empty := t.TempDir()
	if _, err := Open(empty); !errors.Is(err, ErrNoPages) {
		t.Errorf("expected ErrNoPages, got %v", err)
	}

	garbage := filepath.Join(t.TempDir(), "broken.png")
	os.WriteFile(garbage, []byte("not an image"), 0644)
	src, err := Open(garbage)
	if err != nil {
		t.Fatalf("Open should defer decoding: %v", err)
	}
	if _, err := src.RenderPage(0, 0); err == nil {
		t.Error("expected decode error")
	}
}

func TestDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 4, 3))); err != nil {
		t.Fatal(err)
	}

	img, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("unexpected bounds %v", img.Bounds())
	}

	if _, err := Decode(bytes.NewReader([]byte("nope"))); err == nil {
		t.Error("expected error for garbage input")
	}
}
