package pdfrenderer

import (
	"fmt"

	"github.com/gen2brain/go-fitz"

	"github.com/drummonds/pdfreader/navigator"
)

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and MuPDF)
type FitzRenderer struct {
	docs *handleTable[*fitz.Document]
}

// NewFitzRenderer creates a new Fitz-based PDF renderer
func NewFitzRenderer() (*FitzRenderer, error) {
	return &FitzRenderer{docs: newHandleTable[*fitz.Document]()}, nil
}

// Name implements Renderer
func (r *FitzRenderer) Name() string { return "fitz" }

// OpenDocument opens a path or in-memory PDF with MuPDF
func (r *FitzRenderer) OpenDocument(src navigator.Source) (navigator.Handle, error) {
	var (
		doc *fitz.Document
		err error
	)
	if src.IsPath() {
		doc, err = fitz.New(src.Path())
	} else {
		doc, err = fitz.NewFromMemory(src.Bytes())
	}
	if err != nil {
		return 0, fmt.Errorf("unable to open PDF document: %w", err)
	}
	h := r.docs.add(doc)
	Logger.Debug("Opened document with fitz", "name", src.Name(), "handle", h, "pages", doc.NumPage())
	return h, nil
}

// PageCount returns the number of pages, 0 for unknown handles
func (r *FitzRenderer) PageCount(h navigator.Handle) int {
	doc, err := r.docs.get(h)
	if err != nil {
		return 0
	}
	return doc.NumPage()
}

// RenderPage rasterizes one page at 72*zoom DPI
func (r *FitzRenderer) RenderPage(h navigator.Handle, index int, zoom float64) (navigator.RasterImage, error) {
	doc, err := r.docs.get(h)
	if err != nil {
		return navigator.RasterImage{}, err
	}
	if index < 0 || index >= doc.NumPage() {
		return navigator.RasterImage{}, fmt.Errorf("page %d out of range", index)
	}
	img, err := doc.ImageDPI(index, dpiFor(zoom))
	if err != nil {
		return navigator.RasterImage{}, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	return ToRaster(img), nil
}

// Close releases the MuPDF document; unknown handles are ignored
func (r *FitzRenderer) Close(h navigator.Handle) error {
	doc, ok := r.docs.remove(h)
	if !ok {
		return nil
	}
	return doc.Close()
}

// Shutdown closes every document still open
func (r *FitzRenderer) Shutdown() error {
	var firstErr error
	for _, doc := range r.docs.drain() {
		if err := doc.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
