// Package navigator holds the viewing session of a PDF reader: at most one open
// document, the current page, and the page-turning rules. Parsing and
// rasterization belong to a Renderer.
//
// A Session is not safe for concurrent use. Shells confine all calls to one
// goroutine or serialise them.
package navigator

import (
	"fmt"
	"math"
)

// NavigationState is what a shell needs to enable its controls and label.
// Current is only meaningful when Loaded is true.
type NavigationState struct {
	CanAdvance bool `json:"canAdvance"`
	CanRetreat bool `json:"canRetreat"`
	Loaded     bool `json:"loaded"`
	Current    int  `json:"current"`
	Total      int  `json:"total"`
}

// Label renders the 1-based "Page: X/Y" text shown under the page.
func (s NavigationState) Label() string {
	if !s.Loaded {
		return "Page: 0/0"
	}
	return fmt.Sprintf("Page: %d/%d", s.Current+1, s.Total)
}

// Session is one viewing session over a Renderer.
type Session struct {
	renderer  Renderer
	zoom      float64
	handle    Handle
	name      string
	pageCount int
	current   int
}

// New creates an empty session. zoom scales rendering relative to 72 DPI and is
// fixed for the life of the session.
func New(renderer Renderer, zoom float64) (*Session, error) {
	if zoom <= 0 || math.IsNaN(zoom) || math.IsInf(zoom, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidZoom, zoom)
	}
	return &Session{renderer: renderer, zoom: zoom}, nil
}

// Zoom returns the zoom factor the session renders at.
func (s *Session) Zoom() float64 { return s.zoom }

func (s *Session) loaded() bool {
	return s.handle != 0 && s.pageCount > 0
}

// release drops the current document, if any.
func (s *Session) release() error {
	if s.handle == 0 {
		return nil
	}
	h := s.handle
	s.handle = 0
	s.pageCount = 0
	s.current = 0
	s.name = ""
	return s.renderer.Close(h)
}

// Open replaces the session's document with src. The previous document is
// released whatever the outcome. On failure the session is empty.
func (s *Session) Open(src Source) error {
	// a failing close of the old document must not keep it alive
	_ = s.release()

	h, err := s.renderer.OpenDocument(src)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	n := s.renderer.PageCount(h)
	if n <= 0 {
		_ = s.renderer.Close(h)
		return fmt.Errorf("%w: %s", ErrEmptyDocument, src.Name())
	}

	s.handle = h
	s.pageCount = n
	s.current = 0
	s.name = src.Name()
	return nil
}

// RenderCurrentPage rasterizes the current page. It blocks for as long as the
// renderer takes; callers that drive a UI run it off their event loop and hand
// only the result back. A render failure leaves the session untouched.
func (s *Session) RenderCurrentPage() (RasterImage, error) {
	if !s.loaded() {
		return RasterImage{}, ErrNoDocumentLoaded
	}
	img, err := s.renderer.RenderPage(s.handle, s.current, s.zoom)
	if err != nil {
		return RasterImage{}, fmt.Errorf("%w: page %d: %w", ErrRenderFailure, s.current+1, err)
	}
	return img, nil
}

// Advance moves to the next page and returns the new index. At the last page it
// returns the unchanged index and ErrAtLastPage.
func (s *Session) Advance() (int, error) {
	if !s.loaded() {
		return 0, ErrNoDocumentLoaded
	}
	if s.current >= s.pageCount-1 {
		return s.current, ErrAtLastPage
	}
	s.current++
	return s.current, nil
}

// Retreat moves to the previous page. At the first page it returns the
// unchanged index and ErrAtFirstPage.
func (s *Session) Retreat() (int, error) {
	if !s.loaded() {
		return 0, ErrNoDocumentLoaded
	}
	if s.current <= 0 {
		return s.current, ErrAtFirstPage
	}
	s.current--
	return s.current, nil
}

// Seek jumps to an absolute 0-based page index.
func (s *Session) Seek(index int) (int, error) {
	if !s.loaded() {
		return 0, ErrNoDocumentLoaded
	}
	if index < 0 || index >= s.pageCount {
		return s.current, fmt.Errorf("%w: %d not in [1, %d]", ErrPageOutOfRange, index+1, s.pageCount)
	}
	s.current = index
	return s.current, nil
}

// First jumps to the first page.
func (s *Session) First() (int, error) {
	return s.Seek(0)
}

// Last jumps to the last page.
func (s *Session) Last() (int, error) {
	if !s.loaded() {
		return 0, ErrNoDocumentLoaded
	}
	return s.Seek(s.pageCount - 1)
}

// State reports the navigation state. It has no side effects.
func (s *Session) State() NavigationState {
	if !s.loaded() {
		return NavigationState{}
	}
	return NavigationState{
		CanAdvance: s.current < s.pageCount-1,
		CanRetreat: s.current > 0,
		Loaded:     true,
		Current:    s.current,
		Total:      s.pageCount,
	}
}

// DocumentName returns the display name of the open document, or "".
func (s *Session) DocumentName() string {
	return s.name
}

// Close ends the session and releases the document. It is safe to call twice.
func (s *Session) Close() error {
	return s.release()
}
