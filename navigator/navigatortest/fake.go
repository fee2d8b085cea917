// Package navigatortest provides an in-memory Renderer for tests of code built
// on the navigator package.
package navigatortest

import (
	"errors"
	"fmt"
	"sync"

	"github.com/drummonds/pdfreader/navigator"
)

// ErrUnknownDocument is returned by OpenDocument for a source the fake has not been told about.
var ErrUnknownDocument = errors.New("fake renderer: cannot parse document")

// Renderer is a fake navigator.Renderer. Documents are looked up by source name.
type Renderer struct {
	mu sync.Mutex

	// Pages maps a source name to its page count.
	Pages map[string]int
	// FailPages lists 0-based page indexes whose render fails.
	FailPages map[int]bool

	next    navigator.Handle
	open    map[navigator.Handle]int
	Renders []int
	Closed  []navigator.Handle
}

// New returns a fake renderer knowing the given documents.
func New(pages map[string]int) *Renderer {
	return &Renderer{
		Pages:     pages,
		FailPages: map[int]bool{},
		open:      map[navigator.Handle]int{},
	}
}

// OpenDocument implements navigator.Renderer.
func (r *Renderer) OpenDocument(src navigator.Source) (navigator.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.Pages[src.Name()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownDocument, src.Name())
	}
	r.next++
	r.open[r.next] = n
	return r.next, nil
}

// PageCount implements navigator.Renderer.
func (r *Renderer) PageCount(h navigator.Handle) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.open[h]
}

// RenderPage implements navigator.Renderer. The raster is 2x1 pixels per zoom
// unit and its first byte carries the page index.
func (r *Renderer) RenderPage(h navigator.Handle, index int, zoom float64) (navigator.RasterImage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.open[h]
	if !ok {
		return navigator.RasterImage{}, fmt.Errorf("fake renderer: handle %d is not open", h)
	}
	if index < 0 || index >= n {
		return navigator.RasterImage{}, fmt.Errorf("fake renderer: page %d out of range", index)
	}
	if r.FailPages[index] {
		return navigator.RasterImage{}, fmt.Errorf("fake renderer: page %d is broken", index)
	}
	r.Renders = append(r.Renders, index)

	w := int(2 * zoom)
	if w < 1 {
		w = 1
	}
	img := navigator.RasterImage{Width: w, Height: 1, Stride: 3 * w}
	img.Pixels = make([]byte, img.Stride)
	img.Pixels[0] = byte(index)
	return img, nil
}

// Close implements navigator.Renderer.
func (r *Renderer) Close(h navigator.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.open[h]; !ok {
		return nil
	}
	delete(r.open, h)
	r.Closed = append(r.Closed, h)
	return nil
}

// OpenCount returns how many documents are currently open.
func (r *Renderer) OpenCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
