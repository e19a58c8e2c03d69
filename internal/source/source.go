package source

import (
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
)

var (
	ErrNoPages   = errors.New("source has no pages")
	ErrPageRange = errors.New("page out of range")
)

// Source is a paged document: a PDF, a directory of scans or a single image.
// Page indexes are 0-based.
type Source interface {
	PageCount() int
	RenderPage(index int, dpi int) (image.Image, error)
	Close() error
}

// Open picks the Source implementation for path.
func Open(path string) (Source, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	var src Source
	if !fi.IsDir() && strings.HasSuffix(strings.ToLower(path), ".pdf") {
		src, err = NewFitzPDFSource(path)
	} else {
		src, err = NewImageSource(path)
	}
	if err != nil {
		return nil, err
	}

	if src.PageCount() == 0 {
		src.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNoPages)
	}
	return src, nil
}

func checkPage(index, count int) error {
	if index < 0 || index >= count {
		return fmt.Errorf("page %d of %d: %w", index+1, count, ErrPageRange)
	}
	return nil
}

type FitzPDFSource struct {
	doc  *fitz.Document
	path string
}

func NewFitzPDFSource(path string) (*FitzPDFSource, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	return &FitzPDFSource{doc: doc, path: path}, nil
}

func (f *FitzPDFSource) PageCount() int {
	return f.doc.NumPage()
}

// RenderPage opens its own document handle so pages can be rendered from
// several goroutines.
func (f *FitzPDFSource) RenderPage(index int, dpi int) (image.Image, error) {
	if err := checkPage(index, f.PageCount()); err != nil {
		return nil, err
	}
	workerDoc, err := fitz.New(f.path)
	if err != nil {
		return nil, err
	}
	defer workerDoc.Close()
	return workerDoc.ImageDPI(index, float64(dpi))
}

func (f *FitzPDFSource) Close() error {
	return f.doc.Close()
}
