package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/drummonds/pdfreader/config"
	"github.com/drummonds/pdfreader/database"
	"github.com/drummonds/pdfreader/engine/pdfrenderer"
	"github.com/drummonds/pdfreader/navigator"
)

// Status texts shown above the page
const (
	StatusMobileEmpty  = "Open a PDF via Sharing/Intent"
	StatusDesktopEmpty = "Open a PDF to begin"
	StatusLoaded       = "PDF Loaded."
	StatusNoPages      = "Error: PDF contains no pages."
	StatusInvalid      = "Error: Invalid or corrupted PDF file."
)

// ServerHandler will inject the variables needed into routes.
// All session access goes through mu, the web equivalent of a UI thread.
type ServerHandler struct {
	DB       database.Repository // nil disables recent documents
	Echo     *echo.Echo
	Config   config.ViewerConfig
	Renderer navigator.Renderer

	mu          sync.Mutex
	session     *navigator.Session
	status      string
	displayName string
	openPath    string
	recent      *database.RecentDocument
}

// ViewerStatus is everything a front-end needs to draw the viewer chrome
type ViewerStatus struct {
	State    navigator.NavigationState `json:"state"`
	Label    string                    `json:"label"`
	Document string                    `json:"document"`
	Status   string                    `json:"status"`
	Variant  string                    `json:"variant"`
	RecentID string                    `json:"recentId,omitempty"`
}

// NewServerHandler creates the handler with an empty session at the configured zoom
func NewServerHandler(cfg config.ViewerConfig, renderer navigator.Renderer, db database.Repository, e *echo.Echo) (*ServerHandler, error) {
	session, err := navigator.New(renderer, cfg.ZoomFactor)
	if err != nil {
		return nil, err
	}
	h := &ServerHandler{
		DB:       db,
		Echo:     e,
		Config:   cfg,
		Renderer: renderer,
		session:  session,
	}
	h.status = h.emptyStatus()
	return h, nil
}

// Close releases the open document
func (h *ServerHandler) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.session.Close()
}

func (h *ServerHandler) emptyStatus() string {
	if h.Config.IsMobile() {
		return StatusMobileEmpty
	}
	return StatusDesktopEmpty
}

// Status returns the current viewer status
func (h *ServerHandler) Status() ViewerStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.statusLocked()
}

func (h *ServerHandler) statusLocked() ViewerStatus {
	state := h.session.State()
	status := ViewerStatus{
		State:   state,
		Label:   state.Label(),
		Status:  h.status,
		Variant: h.Config.Variant,
	}
	if state.Loaded {
		status.Document = h.displayName
	}
	if h.recent != nil {
		status.RecentID = h.recent.ID.String()
	}
	return status
}

// OpenFile opens a local PDF. startPage is a 0-based page to resume at and is
// ignored when the document is shorter.
func (h *ServerHandler) OpenFile(path, name string, startPage int) (ViewerStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openLocked(path, name, startPage)
}

func (h *ServerHandler) openLocked(path, name string, startPage int) (ViewerStatus, error) {
	if name == "" {
		name = filepath.Base(path)
	}
	h.recent = nil
	h.openPath = ""
	h.displayName = ""

	src := navigator.FromPath(path)
	if err := h.session.Open(src); err != nil {
		h.status = openFailureStatus(err)
		Logger.Warn("Unable to open document", "path", path, "error", err)
		return h.statusLocked(), err
	}
	h.openPath = path
	h.displayName = name
	h.status = StatusLoaded

	if startPage > 0 {
		if _, err := h.session.Seek(startPage); err != nil {
			Logger.Debug("Stored page no longer valid, starting at first page", "path", path, "page", startPage)
		}
	}

	info, err := pdfrenderer.Probe(src)
	if err != nil {
		Logger.Debug("Unable to read document metadata", "path", path, "error", err)
	}
	if info.Title != "" {
		h.displayName = info.Title
	}

	state := h.session.State()
	Logger.Info("Document opened", "path", path, "pages", state.Total, "page", state.Current+1)
	h.recordOpenLocked(name, info.Title, path, state.Total)
	return h.statusLocked(), nil
}

// openFailureStatus maps an open error onto the text shown to the reader
func openFailureStatus(err error) string {
	switch {
	case errors.Is(err, navigator.ErrEmptyDocument):
		return StatusNoPages
	case errors.Is(err, navigator.ErrInvalidDocument):
		return StatusInvalid
	default:
		return fmt.Sprintf("Error loading PDF: %v", err)
	}
}

// recordOpenLocked adds the document to the recent list, failures are only logged
func (h *ServerHandler) recordOpenLocked(name, title, path string, pageCount int) {
	if h.DB == nil {
		return
	}
	doc, err := database.RecordOpen(h.DB, name, title, path, pageCount)
	if err != nil {
		return
	}
	h.recent = doc
	h.trackPageLocked()
}

// trackPageLocked stores the current page so the document can be resumed
func (h *ServerHandler) trackPageLocked() {
	if h.DB == nil || h.recent == nil {
		return
	}
	page := h.session.State().Current
	if h.recent.LastPage == page {
		return
	}
	if err := h.DB.UpdateLastPage(h.recent.ID, page); err != nil {
		Logger.Warn("Unable to store reading position", "id", h.recent.ID, "error", err)
		return
	}
	h.recent.LastPage = page
}

// Navigate applies one page movement. Reaching either end of the document is
// not an error, the status is returned unchanged.
func (h *ServerHandler) Navigate(move func(*navigator.Session) (int, error)) (ViewerStatus, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, err := move(h.session); err != nil && !navigator.IsBoundary(err) {
		return h.statusLocked(), err
	}
	h.trackPageLocked()
	return h.statusLocked(), nil
}

// RenderPNG renders the current page as PNG. A positive width scales the page
// down to fit, pages narrower than width are left alone.
func (h *ServerHandler) RenderPNG(width int) ([]byte, error) {
	h.mu.Lock()
	raster, err := h.session.RenderCurrentPage()
	if err != nil {
		if errors.Is(err, navigator.ErrRenderFailure) {
			h.status = fmt.Sprintf("Error rendering page %d: %v", h.session.State().Current+1, err)
		}
		h.mu.Unlock()
		Logger.Warn("Unable to render page", "error", err)
		return nil, err
	}
	h.status = StatusLoaded
	h.mu.Unlock()

	img := raster.Image()
	if width > 0 && img.Bounds().Dx() > width {
		img = imaging.Resize(img, width, 0, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// OpenUpload stores an uploaded or shared PDF in the cache and opens it
func (h *ServerHandler) OpenUpload(name string, r io.Reader) (ViewerStatus, error) {
	path, err := h.storeUpload(name, r)
	if err != nil {
		return h.Status(), err
	}

	status, err := h.OpenFile(path, filepath.Base(path), 0)
	if err != nil {
		// nothing will ever reopen a broken upload
		if rmErr := os.RemoveAll(filepath.Dir(path)); rmErr != nil {
			Logger.Warn("Unable to remove rejected upload", "path", path, "error", rmErr)
		}
	}
	return status, err
}

// storeUpload writes r to CachePath/<ulid>/<name> so the original file name survives
func (h *ServerHandler) storeUpload(name string, r io.Reader) (string, error) {
	dir := filepath.Join(h.Config.CachePath, ulid.Make().String())
	if err := os.MkdirAll(dir, 0755); err != nil {
		Logger.Error("Unable to create cache folder for upload", "path", dir, "error", err)
		return "", err
	}
	path := filepath.Join(dir, uploadFileName(name))

	file, err := os.Create(path)
	if err != nil {
		Logger.Error("Unable to create upload file", "path", path, "error", err)
		return "", err
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		Logger.Error("Unable to write uploaded file", "path", path, "error", err)
		return "", err
	}
	if err := file.Close(); err != nil {
		return "", err
	}
	Logger.Debug("Stored upload in cache", "path", path)
	return path, nil
}

// uploadFileName strips any directories from a client supplied name
func uploadFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "shared.pdf"
	}
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

// currentPath returns the file backing the open document, or ""
func (h *ServerHandler) currentPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.openPath
}

// forgetRecent clears the link to a recent entry that was deleted
func (h *ServerHandler) forgetRecent(id ulid.ULID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recent != nil && h.recent.ID == id {
		h.recent = nil
	}
}
