package main

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/engine"
	"github.com/ivlev/magicscan/internal/geom"
	"github.com/ivlev/magicscan/internal/source"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func writePage(t *testing.T, path string, questions int) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 1000, 1000))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	black := image.NewUniform(color.Gray{})
	for q := 0; q < questions; q++ {
		for line := 0; line < 3; line++ {
			for g := 0; g < 15; g++ {
				x := 600 + g*16
				y := 100 + q*250 + line*22
				draw.Draw(img, image.Rect(x, y, x+8, y+12), black, image.Point{}, draw.Src)
			}
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestRunSinglePage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	writePage(t, path, 2)

	tests := []struct {
		name string
		roi  []string
		want int
	}{
		{"whole page", nil, 2},
		{"roi", []string{"0", "0", "1000", "300"}, 1},
		{"fractional roi", []string{"0.5", "0", "1000.9", "300.2"}, 1},
		{"malformed roi falls back", []string{"0", "0", "1000"}, 2},
		{"degenerate roi", []string{"0", "0", "0", "300"}, 0},
		{"negative origin", []string{"-20", "-10", "1020", "310"}, 1},
		{"far outside", []string{"5000", "0", "100", "100"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := args{Image: path, ROI: tt.roi, Page: 1, Engine: "native"}
			out, err := run(context.Background(), a, config.Default(), quietLogger())
			if err != nil {
				t.Fatalf("run failed: %v", err)
			}
			rects, ok := out.([]geom.PageRect)
			if !ok {
				t.Fatalf("unexpected output type %T", out)
			}
			if len(rects) != tt.want {
				t.Errorf("expected %d blocks, got %v", tt.want, rects)
			}

			var buf bytes.Buffer
			if err := writeJSON(&buf, out); err != nil {
				t.Fatal(err)
			}
			if tt.want == 0 && buf.String() != "[]\n" {
				t.Errorf("expected [], got %q", buf.String())
			}
		})
	}
}

func TestRunAllPagesWithOverlay(t *testing.T) {
	dir := t.TempDir()
	pages := filepath.Join(dir, "scans")
	os.Mkdir(pages, 0755)
	writePage(t, filepath.Join(pages, "01.png"), 1)
	writePage(t, filepath.Join(pages, "02.png"), 3)

	a := args{
		Image:    pages,
		Page:     1,
		AllPages: true,
		Engine:   "native",
		Overlay:  filepath.Join(dir, "debug.png"),
	}
	out, err := run(context.Background(), a, config.Default(), quietLogger())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	results := out.([]engine.PageResult)
	if len(results) != 2 || len(results[0].Blocks) != 1 || len(results[1].Blocks) != 3 {
		t.Errorf("unexpected results %+v", results)
	}

	for _, name := range []string{"debug_p1.png", "debug_p2.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("overlay %s missing: %v", name, err)
		}
	}
}

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	writePage(t, path, 1)

	_, err := run(context.Background(), args{Image: filepath.Join(dir, "missing.png"), Page: 1}, config.Default(), quietLogger())
	if err == nil {
		t.Error("expected error for a missing file")
	}

	_, err = run(context.Background(), args{Image: path, Page: 3}, config.Default(), quietLogger())
	if !errors.Is(err, source.ErrPageRange) {
		t.Errorf("expected ErrPageRange, got %v", err)
	}

	_, err = run(context.Background(), args{Image: path, Page: 1, Engine: "gpu"}, config.Default(), quietLogger())
	if err == nil {
		t.Error("expected error for an unknown engine")
	}
}

func TestProtectROI(t *testing.T) {
	tests := []struct {
		name string
		argv []string
		want []string
	}{
		{"no roi", []string{"page.png"}, []string{"page.png"}},
		{"positive roi", []string{"page.png", "0", "0", "10", "10"}, []string{"page.png", "0", "0", "10", "10"}},
		{"negative roi", []string{"page.png", "-20", "0", "500", "400"}, []string{"page.png", "--", "-20", "0", "500", "400"}},
		{"flag value before roi", []string{"page.png", "-w", "4", "-20", "0", "500"}, []string{"page.png", "-w", "4", "--", "-20", "0", "500"}},
		{"negative flag value", []string{"page.png", "-p", "-1"}, []string{"page.png", "-p", "-1"}},
		{"already separated", []string{"page.png", "--", "-20", "0", "1", "1"}, []string{"page.png", "--", "-20", "0", "1", "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := protectROI(tt.argv); !slices.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseNegativeROI(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	writePage(t, path, 2)

	var a args
	p, err := arg.NewParser(arg.Config{Program: "magicscan"}, &a)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Parse(protectROI([]string{"-e", "native", path, "-20", "-10", "1020", "310"})); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if a.Image != path || !slices.Equal(a.ROI, []string{"-20", "-10", "1020", "310"}) {
		t.Fatalf("unexpected args %+v", a)
	}

	out, err := run(context.Background(), a, config.Default(), quietLogger())
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if rects := out.([]geom.PageRect); len(rects) != 1 {
		t.Errorf("expected 1 block, got %v", rects)
	}
}
