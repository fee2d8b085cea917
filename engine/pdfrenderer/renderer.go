package pdfrenderer

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"

	"github.com/drummonds/pdfreader/navigator"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// ErrUnknownHandle is returned when a released or foreign handle is used
var ErrUnknownHandle = errors.New("unknown document handle")

// Renderer is the navigator contract plus a shutdown hook for pooled back ends
type Renderer interface {
	navigator.Renderer

	// Name identifies the back end in logs and the about page
	Name() string

	// Shutdown releases every open document and any pool the renderer holds
	Shutdown() error
}

// Options configures NewRenderer
type Options struct {
	// ServiceURL is the base URL of the render service, used by the remote renderer
	ServiceURL string
}

// NewRenderer creates a renderer by kind: "fitz" (default), "pdfium" or "remote"
func NewRenderer(kind string, opts Options) (Renderer, error) {
	switch kind {
	case "", "fitz", "mupdf":
		return NewFitzRenderer()
	case "pdfium":
		return NewPDFiumRenderer()
	case "remote":
		return NewRemoteRenderer(opts.ServiceURL)
	default:
		return nil, fmt.Errorf("unknown renderer %q (supported: fitz, pdfium, remote)", kind)
	}
}

// dpiFor converts a zoom factor into the DPI the back ends take; PDF user space is 72 DPI
func dpiFor(zoom float64) float64 {
	return 72 * zoom
}

// ToRaster packs any image into 8-bit RGB, dropping alpha
func ToRaster(img image.Image) navigator.RasterImage {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	out := navigator.RasterImage{Width: w, Height: h, Stride: 3 * w}
	out.Pixels = make([]byte, out.Stride*h)
	for y := 0; y < h; y++ {
		src := rgba.Pix[y*rgba.Stride : y*rgba.Stride+4*w]
		dst := out.Pixels[y*out.Stride : (y+1)*out.Stride]
		for x := 0; x < w; x++ {
			dst[3*x] = src[4*x]
			dst[3*x+1] = src[4*x+1]
			dst[3*x+2] = src[4*x+2]
		}
	}
	return out
}

// handleTable maps navigator handles to back end documents
type handleTable[T any] struct {
	mu   sync.Mutex
	next navigator.Handle
	docs map[navigator.Handle]T
}

func newHandleTable[T any]() *handleTable[T] {
	return &handleTable[T]{docs: make(map[navigator.Handle]T)}
}

func (t *handleTable[T]) add(doc T) navigator.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next++
	t.docs[t.next] = doc
	return t.next
}

func (t *handleTable[T]) get(h navigator.Handle) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.docs[h]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %d", ErrUnknownHandle, h)
	}
	return doc, nil
}

// remove takes the document out of the table; ok is false if it was not there
func (t *handleTable[T]) remove(h navigator.Handle) (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	doc, ok := t.docs[h]
	delete(t.docs, h)
	return doc, ok
}

// drain empties the table and returns what it held
func (t *handleTable[T]) drain() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]T, 0, len(t.docs))
	for h, doc := range t.docs {
		out = append(out, doc)
		delete(t.docs, h)
	}
	return out
}
