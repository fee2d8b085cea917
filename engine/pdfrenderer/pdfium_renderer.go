package pdfrenderer

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"

	"github.com/drummonds/pdfreader/navigator"
)

type pdfiumDocument struct {
	ref   references.FPDF_DOCUMENT
	pages int
}

// PDFiumRenderer implements PDF rendering using go-pdfium with WebAssembly (pure Go, no CGo)
type PDFiumRenderer struct {
	// a single PDFium instance is not safe for concurrent calls
	mu       sync.Mutex
	pool     pdfium.Pool
	instance pdfium.Pdfium
	docs     *handleTable[pdfiumDocument]
}

// NewPDFiumRenderer creates a new PDFium-based PDF renderer using WebAssembly
func NewPDFiumRenderer() (*PDFiumRenderer, error) {
	// One worker is enough: a session renders one page at a time
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &PDFiumRenderer{
		pool:     pool,
		instance: instance,
		docs:     newHandleTable[pdfiumDocument](),
	}, nil
}

// Name implements Renderer
func (r *PDFiumRenderer) Name() string { return "pdfium" }

// OpenDocument loads the PDF into the PDFium instance
func (r *PDFiumRenderer) OpenDocument(src navigator.Source) (navigator.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return 0, fmt.Errorf("pdfium renderer is shut down")
	}

	req := &requests.OpenDocument{}
	if src.IsPath() {
		path := src.Path()
		req.FilePath = &path
	} else {
		data := src.Bytes()
		req.File = &data
	}
	doc, err := r.instance.OpenDocument(req)
	if err != nil {
		return 0, fmt.Errorf("unable to open PDF document: %w", err)
	}

	pageCountResp, err := r.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Document,
	})
	if err != nil {
		r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.Document})
		return 0, fmt.Errorf("unable to get page count: %w", err)
	}

	h := r.docs.add(pdfiumDocument{ref: doc.Document, pages: pageCountResp.PageCount})
	Logger.Debug("Opened document with pdfium", "name", src.Name(), "handle", h, "pages", pageCountResp.PageCount)
	return h, nil
}

// PageCount returns the page count read at open time
func (r *PDFiumRenderer) PageCount(h navigator.Handle) int {
	doc, err := r.docs.get(h)
	if err != nil {
		return 0
	}
	return doc.pages
}

// RenderPage renders one page at 72*zoom DPI
func (r *PDFiumRenderer) RenderPage(h navigator.Handle, index int, zoom float64) (navigator.RasterImage, error) {
	doc, err := r.docs.get(h)
	if err != nil {
		return navigator.RasterImage{}, err
	}
	if index < 0 || index >= doc.pages {
		return navigator.RasterImage{}, fmt.Errorf("page %d out of range", index)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return navigator.RasterImage{}, fmt.Errorf("pdfium renderer is shut down")
	}
	pageRender, err := r.instance.RenderPageInDPI(&requests.RenderPageInDPI{
		DPI: int(math.Round(dpiFor(zoom))),
		Page: requests.Page{
			ByIndex: &requests.PageByIndex{
				Document: doc.ref,
				Index:    index,
			},
		},
	})
	if err != nil {
		return navigator.RasterImage{}, fmt.Errorf("unable to render page %d: %w", index, err)
	}
	// the image lives in WebAssembly memory until Cleanup, so copy it out first
	raster := ToRaster(pageRender.Result.Image)
	pageRender.Cleanup()
	return raster, nil
}

// Close releases the document inside PDFium; unknown handles are ignored
func (r *PDFiumRenderer) Close(h navigator.Handle) error {
	doc, ok := r.docs.remove(h)
	if !ok {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance == nil {
		return nil
	}
	_, err := r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.ref})
	return err
}

// Shutdown closes all documents and the WebAssembly pool
func (r *PDFiumRenderer) Shutdown() error {
	docs := r.docs.drain()
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.instance != nil {
		for _, doc := range docs {
			r.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{Document: doc.ref})
		}
	}
	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}
	r.instance = nil
	return nil
}
