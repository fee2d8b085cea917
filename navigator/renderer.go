package navigator

import (
	"image"
	"path/filepath"
)

// Handle identifies a document opened by a Renderer. Zero is never issued.
type Handle uint64

// Renderer parses documents and rasterizes their pages. Implementations live in
// engine/pdfrenderer.
type Renderer interface {
	// OpenDocument opens the source and returns a handle owned by the caller
	OpenDocument(src Source) (Handle, error)
	// PageCount returns the number of pages, or 0 for an unknown handle
	PageCount(h Handle) int
	// RenderPage rasterizes a page at the given zoom, 1.0 being 72 DPI.
	// It blocks until the page is done.
	RenderPage(h Handle, index int, zoom float64) (RasterImage, error)
	// Close releases the document. Closing an unknown or released handle is a no-op.
	Close(h Handle) error
}

// Source is a document byte source: either a local path or an in-memory buffer.
type Source struct {
	path string
	name string
	data []byte
}

// FromPath returns a source reading the document at path.
func FromPath(path string) Source {
	return Source{path: path, name: filepath.Base(path)}
}

// FromBytes returns a source over an in-memory document. name is only used for display.
func FromBytes(name string, data []byte) Source {
	return Source{name: name, data: data}
}

// Path returns the local path, or "" for an in-memory source.
func (s Source) Path() string { return s.path }

// Bytes returns the in-memory buffer, or nil for a path source.
func (s Source) Bytes() []byte { return s.data }

// IsPath reports whether the source is a local path.
func (s Source) IsPath() bool { return s.path != "" }

// Name returns the display name of the source
func (s Source) Name() string {
	if s.name == "" && s.path == "" {
		return "document.pdf"
	}
	return s.name
}

// RasterImage is one rendered page: packed 8-bit RGB without alpha.
// Row y starts at Pixels[y*Stride].
type RasterImage struct {
	Pixels []byte
	Width  int
	Height int
	Stride int
}

// Image converts the raster into an image.Image so it can be handed to encoders.
func (r RasterImage) Image() image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))
	for y := 0; y < r.Height; y++ {
		src := r.Pixels[y*r.Stride : y*r.Stride+3*r.Width]
		dst := img.Pix[y*img.Stride : y*img.Stride+4*r.Width]
		for x := 0; x < r.Width; x++ {
			dst[4*x] = src[3*x]
			dst[4*x+1] = src[3*x+1]
			dst[4*x+2] = src[3*x+2]
			dst[4*x+3] = 0xff
		}
	}
	return img
}
