package navigator

import "errors"

var (
	// ErrInvalidDocument is returned by Open when the renderer cannot parse the source.
	ErrInvalidDocument = errors.New("invalid or corrupted PDF document")
	// ErrEmptyDocument is returned by Open when the document parses but has no pages.
	ErrEmptyDocument = errors.New("PDF contains no pages")
	// ErrNoDocumentLoaded is returned by operations that need an open document.
	ErrNoDocumentLoaded = errors.New("no document loaded")
	// ErrRenderFailure wraps a renderer error for a single page. The session stays usable.
	ErrRenderFailure = errors.New("page render failed")
	// ErrAtFirstPage is a boundary condition, not a failure.
	ErrAtFirstPage = errors.New("already at first page")
	// ErrAtLastPage is a boundary condition, not a failure.
	ErrAtLastPage = errors.New("already at last page")
	// ErrPageOutOfRange is returned by Seek for an index outside the document.
	ErrPageOutOfRange = errors.New("page index out of range")
	// ErrInvalidZoom is returned by New for a zoom factor that is not a positive finite number.
	ErrInvalidZoom = errors.New("zoom factor must be a positive number")
)

// IsBoundary reports whether err is one of the page boundary conditions.
// Callers treat these as successful no-ops.
func IsBoundary(err error) bool {
	return errors.Is(err, ErrAtFirstPage) || errors.Is(err, ErrAtLastPage)
}
