package engine

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"

	"github.com/drummonds/pdfreader/config"
	"github.com/drummonds/pdfreader/database"
	"github.com/drummonds/pdfreader/internal/testpdf"
	"github.com/drummonds/pdfreader/navigator/navigatortest"
)

func testConfig(t *testing.T, variant string) config.ViewerConfig {
	t.Helper()
	zoom := config.DefaultDesktopZoom
	if variant == config.VariantMobile {
		zoom = config.DefaultMobileZoom
	}
	return config.ViewerConfig{
		Variant:      variant,
		ZoomFactor:   zoom,
		Renderer:     "fitz",
		DatabaseType: "sqlite",
		CachePath:    filepath.Join(t.TempDir(), "cache"),
		CacheMaxAge:  24 * time.Hour,
		RecentLimit:  10,
	}
}

func testDB(t *testing.T) database.Repository {
	t.Helper()
	db, err := database.NewRepository(config.ViewerConfig{
		DatabaseType:   "sqlite",
		DatabaseDbname: filepath.Join(t.TempDir(), "viewer.sqlite"),
	})
	if err != nil {
		t.Fatalf("Failed to set up database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// setupTestHandler wires a handler over the fake renderer, db may be nil
func setupTestHandler(t *testing.T, cfg config.ViewerConfig, db database.Repository, pages map[string]int) (*ServerHandler, *navigatortest.Renderer) {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	renderer := navigatortest.New(pages)
	h, err := NewServerHandler(cfg, renderer, db, echo.New())
	if err != nil {
		t.Fatalf("NewServerHandler failed: %v", err)
	}
	if err := h.StartupChecks(); err != nil {
		t.Fatalf("StartupChecks failed: %v", err)
	}
	h.RegisterRoutes()
	t.Cleanup(func() { h.Close() })
	return h, renderer
}

func doRequest(h *ServerHandler, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	h.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeStatus(t *testing.T, rec *httptest.ResponseRecorder) ViewerStatus {
	t.Helper()
	var status ViewerStatus
	if rec.Code == http.StatusOK {
		if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
			t.Fatalf("Failed to decode status %q: %v", rec.Body.String(), err)
		}
		return status
	}
	var failure struct {
		Error  string       `json:"error"`
		Viewer ViewerStatus `json:"viewer"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &failure); err != nil {
		t.Fatalf("Failed to decode error %q: %v", rec.Body.String(), err)
	}
	return failure.Viewer
}

func openPath(t *testing.T, h *ServerHandler, path string) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(openRequest{Path: path})
	return doRequest(h, http.MethodPost, "/api/document/open", bytes.NewReader(body), echo.MIMEApplicationJSON)
}

func multipartBody(t *testing.T, field, name string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if field != "" {
		part, err := writer.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		part.Write(data)
	}
	writer.Close()
	return &buf, writer.FormDataContentType()
}

func TestViewerNavigation(t *testing.T) {
	h, renderer := setupTestHandler(t, testConfig(t, config.VariantDesktop), nil, map[string]int{
		"report.pdf": 5,
		"empty.pdf":  0,
	})

	status := decodeStatus(t, doRequest(h, http.MethodGet, "/api/navigation", nil, ""))
	if status.Label != "Page: 0/0" || status.Status != StatusDesktopEmpty || status.State.Loaded {
		t.Errorf("Unexpected empty status %+v", status)
	}

	if rec := doRequest(h, http.MethodPost, "/api/page/next", nil, ""); rec.Code != http.StatusConflict {
		t.Errorf("Next without document: expected 409, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodGet, "/api/page/image", nil, ""); rec.Code != http.StatusConflict {
		t.Errorf("Image without document: expected 409, got %d", rec.Code)
	}

	path := testpdf.WriteFile(t, "report.pdf", 5, "Annual Report")
	rec := openPath(t, h, path)
	if rec.Code != http.StatusOK {
		t.Fatalf("Open failed with %d: %s", rec.Code, rec.Body.String())
	}
	status = decodeStatus(t, rec)
	if status.State.Current != 0 || status.State.Total != 5 || status.State.CanRetreat || !status.State.CanAdvance {
		t.Errorf("Unexpected state after open %+v", status.State)
	}
	if status.Status != StatusLoaded || status.Label != "Page: 1/5" {
		t.Errorf("Unexpected status text %q / %q", status.Status, status.Label)
	}
	if status.Document != "Annual Report" {
		t.Errorf("Expected PDF title as document name, got %q", status.Document)
	}

	// previous at the first page is a no-op, not an error
	rec = doRequest(h, http.MethodPost, "/api/page/previous", nil, "")
	if rec.Code != http.StatusOK || decodeStatus(t, rec).State.Current != 0 {
		t.Errorf("Previous at first page: got %d %s", rec.Code, rec.Body.String())
	}

	for i := 0; i < 5; i++ {
		rec = doRequest(h, http.MethodPost, "/api/page/next", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Next failed with %d", rec.Code)
		}
	}
	status = decodeStatus(t, rec)
	if status.State.Current != 4 || status.State.CanAdvance || status.Label != "Page: 5/5" {
		t.Errorf("Expected to stop at last page, got %+v", status)
	}

	status = decodeStatus(t, doRequest(h, http.MethodPost, "/api/page/goto?page=2", nil, ""))
	if status.State.Current != 1 {
		t.Errorf("Goto page 2: expected index 1, got %d", status.State.Current)
	}
	rec = doRequest(h, http.MethodPost, "/api/page/goto?page=9", nil, "")
	if rec.Code != http.StatusBadRequest || decodeStatus(t, rec).State.Current != 1 {
		t.Errorf("Goto past the end: got %d %s", rec.Code, rec.Body.String())
	}
	if rec := doRequest(h, http.MethodPost, "/api/page/goto?page=two", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Goto with bad number: expected 400, got %d", rec.Code)
	}
	if s := decodeStatus(t, doRequest(h, http.MethodPost, "/api/page/last", nil, "")); s.State.Current != 4 {
		t.Errorf("Last: expected index 4, got %d", s.State.Current)
	}
	if s := decodeStatus(t, doRequest(h, http.MethodPost, "/api/page/first", nil, "")); s.State.Current != 0 {
		t.Errorf("First: expected index 0, got %d", s.State.Current)
	}

	rec = doRequest(h, http.MethodGet, "/api/page/image", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Image failed with %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "image/png" {
		t.Errorf("Expected image/png, got %s", ct)
	}
	img, err := imaging.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Failed to decode page image: %v", err)
	}
	if img.Bounds().Dx() != 3 {
		t.Errorf("Expected 3 pixel wide page at zoom 1.5, got %d", img.Bounds().Dx())
	}

	// a broken page leaves the session where it was
	renderer.FailPages[4] = true
	doRequest(h, http.MethodPost, "/api/page/last", nil, "")
	rec = doRequest(h, http.MethodGet, "/api/page/image", nil, "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Broken page: expected 500, got %d", rec.Code)
	}
	status = decodeStatus(t, doRequest(h, http.MethodGet, "/api/navigation", nil, ""))
	if !strings.HasPrefix(status.Status, "Error rendering page 5") || status.State.Current != 4 {
		t.Errorf("Unexpected status after render failure %+v", status)
	}

	rec = openPath(t, h, testpdf.WriteFile(t, "empty.pdf", 1, ""))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Empty document: expected 422, got %d", rec.Code)
	}
	status = decodeStatus(t, rec)
	if status.Status != StatusNoPages || status.State.Loaded || status.Label != "Page: 0/0" {
		t.Errorf("Unexpected status after empty document %+v", status)
	}

	rec = openPath(t, h, filepath.Join(t.TempDir(), "unknown.pdf"))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Unreadable document: expected 422, got %d", rec.Code)
	}
	if s := decodeStatus(t, rec); s.Status != StatusInvalid {
		t.Errorf("Expected invalid status text, got %q", s.Status)
	}
	if renderer.OpenCount() != 0 {
		t.Errorf("Expected no open documents after failed opens, got %d", renderer.OpenCount())
	}

	if rec := doRequest(h, http.MethodPost, "/api/document/open", strings.NewReader(`{}`), echo.MIMEApplicationJSON); rec.Code != http.StatusBadRequest {
		t.Errorf("Open without path: expected 400, got %d", rec.Code)
	}
}

func TestUploadAndShare(t *testing.T) {
	cfg := testConfig(t, config.VariantMobile)
	h, _ := setupTestHandler(t, cfg, nil, map[string]int{"shared.pdf": 3, "handout.pdf": 2})

	status := decodeStatus(t, doRequest(h, http.MethodGet, "/api/navigation", nil, ""))
	if status.Status != StatusMobileEmpty || status.Variant != config.VariantMobile {
		t.Errorf("Unexpected mobile empty status %+v", status)
	}

	body, contentType := multipartBody(t, "file", "../../handout.pdf", []byte("%PDF-1.4"))
	rec := doRequest(h, http.MethodPost, "/api/document/upload", body, contentType)
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload failed with %d: %s", rec.Code, rec.Body.String())
	}
	if s := decodeStatus(t, rec); s.State.Total != 2 || s.Document != "handout.pdf" {
		t.Errorf("Unexpected status after upload %+v", s)
	}
	uploaded, _ := filepath.Glob(filepath.Join(cfg.CachePath, "*", "handout.pdf"))
	if len(uploaded) != 1 {
		t.Errorf("Expected upload inside the cache, found %v", uploaded)
	}

	body, contentType = multipartBody(t, "pdf", "shared", []byte("%PDF-1.4"))
	rec = doRequest(h, http.MethodPost, "/share", body, contentType)
	if rec.Code != http.StatusSeeOther || rec.Header().Get(echo.HeaderLocation) != "/" {
		t.Errorf("Share: expected 303 to /, got %d %s", rec.Code, rec.Header().Get(echo.HeaderLocation))
	}
	if s := h.Status(); s.State.Total != 3 || s.Status != StatusLoaded {
		t.Errorf("Unexpected status after share %+v", s)
	}

	body, contentType = multipartBody(t, "file", "junk.pdf", []byte("junk"))
	rec = doRequest(h, http.MethodPost, "/api/document/upload", body, contentType)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Junk upload: expected 422, got %d", rec.Code)
	}
	if junk, _ := filepath.Glob(filepath.Join(cfg.CachePath, "*", "junk.pdf")); len(junk) != 0 {
		t.Errorf("Rejected upload should be removed, found %v", junk)
	}

	body, contentType = multipartBody(t, "", "", nil)
	if rec := doRequest(h, http.MethodPost, "/api/document/upload", body, contentType); rec.Code != http.StatusBadRequest {
		t.Errorf("Upload without file: expected 400, got %d", rec.Code)
	}
	body, contentType = multipartBody(t, "", "", nil)
	if rec := doRequest(h, http.MethodPost, "/share", body, contentType); rec.Code != http.StatusBadRequest {
		t.Errorf("Share without file: expected 400, got %d", rec.Code)
	}
}

func TestMobileImageWidth(t *testing.T) {
	cfg := testConfig(t, config.VariantMobile)
	cfg.MobileImageWidth = 2
	h, _ := setupTestHandler(t, cfg, nil, map[string]int{"wide.pdf": 1})
	openPath(t, h, testpdf.WriteFile(t, "wide.pdf", 1, ""))

	// zoom 2 gives a 4 pixel page, scaled to the configured width
	rec := doRequest(h, http.MethodGet, "/api/page/image", nil, "")
	img, err := imaging.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Failed to decode page image: %v", err)
	}
	if img.Bounds().Dx() != 2 {
		t.Errorf("Expected page fitted to width 2, got %d", img.Bounds().Dx())
	}

	rec = doRequest(h, http.MethodGet, "/api/page/image?width=100", nil, "")
	img, _ = imaging.Decode(rec.Body)
	if img == nil || img.Bounds().Dx() != 4 {
		t.Error("A width larger than the page should not scale it up")
	}
}

func TestManifest(t *testing.T) {
	for _, variant := range []string{config.VariantDesktop, config.VariantMobile} {
		h, _ := setupTestHandler(t, testConfig(t, variant), nil, nil)
		rec := doRequest(h, http.MethodGet, "/manifest.webmanifest", nil, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("Manifest failed with %d", rec.Code)
		}
		var manifest webManifest
		if err := json.Unmarshal(rec.Body.Bytes(), &manifest); err != nil {
			t.Fatalf("Failed to decode manifest: %v", err)
		}
		hasShare := manifest.ShareTarget != nil
		if hasShare != (variant == config.VariantMobile) {
			t.Errorf("Variant %s: share target present = %v", variant, hasShare)
		}
		if hasShare && manifest.ShareTarget.Params.Files[0].Name != "pdf" {
			t.Errorf("Share target should post the pdf field, got %+v", manifest.ShareTarget.Params)
		}
	}
}

func TestRecentDocumentRoutes(t *testing.T) {
	db := testDB(t)
	h, _ := setupTestHandler(t, testConfig(t, config.VariantDesktop), db, map[string]int{"a.pdf": 6, "b.pdf": 2})

	pathA := testpdf.WriteFile(t, "a.pdf", 6, "")
	pathB := testpdf.WriteFile(t, "b.pdf", 2, "")
	openPath(t, h, pathA)
	doRequest(h, http.MethodPost, "/api/page/next", nil, "")
	doRequest(h, http.MethodPost, "/api/page/next", nil, "")

	rec := doRequest(h, http.MethodGet, "/api/recent", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Recent failed with %d", rec.Code)
	}
	var recent []recentDocumentView
	if err := json.Unmarshal(rec.Body.Bytes(), &recent); err != nil {
		t.Fatalf("Failed to decode recent documents: %v", err)
	}
	if len(recent) != 1 || recent[0].LastPage != 2 || !recent[0].Current || recent[0].DisplayName != "a.pdf" {
		t.Fatalf("Unexpected recent documents %+v", recent)
	}
	idA := recent[0].ID.String()

	openPath(t, h, pathB)
	rec = doRequest(h, http.MethodPost, "/api/recent/"+idA+"/open", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Reopen failed with %d: %s", rec.Code, rec.Body.String())
	}
	if s := decodeStatus(t, rec); s.State.Current != 2 || s.RecentID != idA {
		t.Errorf("Expected to resume a.pdf at index 2, got %+v", s)
	}

	if rec := doRequest(h, http.MethodDelete, "/api/recent/"+idA, nil, ""); rec.Code != http.StatusOK {
		t.Errorf("Delete failed with %d", rec.Code)
	}
	if s := h.Status(); s.RecentID != "" {
		t.Errorf("Deleted entry still linked to the session: %s", s.RecentID)
	}
	if rec := doRequest(h, http.MethodDelete, "/api/recent/"+idA, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("Second delete: expected 404, got %d", rec.Code)
	}
	if rec := doRequest(h, http.MethodPost, "/api/recent/not-a-ulid/open", nil, ""); rec.Code != http.StatusBadRequest {
		t.Errorf("Bad id: expected 400, got %d", rec.Code)
	}

	rec = doRequest(h, http.MethodGet, "/api/recent?limit=1", nil, "")
	recent = nil
	json.Unmarshal(rec.Body.Bytes(), &recent)
	if len(recent) != 1 || recent[0].Name != "b.pdf" {
		t.Errorf("Expected only b.pdf left, got %+v", recent)
	}
}

func TestRecentDisabledWithoutDatabase(t *testing.T) {
	h, _ := setupTestHandler(t, testConfig(t, config.VariantDesktop), nil, nil)
	if rec := doRequest(h, http.MethodGet, "/api/recent", nil, ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without database, got %d", rec.Code)
	}
}

func TestPruneCache(t *testing.T) {
	db := testDB(t)
	cfg := testConfig(t, config.VariantDesktop)
	h, _ := setupTestHandler(t, cfg, db, map[string]int{"old.pdf": 1, "open.pdf": 1, "fresh.pdf": 1})

	upload := func(name string) string {
		body, contentType := multipartBody(t, "file", name, []byte("%PDF-1.4"))
		rec := doRequest(h, http.MethodPost, "/api/document/upload", body, contentType)
		if rec.Code != http.StatusOK {
			t.Fatalf("Upload of %s failed with %d", name, rec.Code)
		}
		matches, _ := filepath.Glob(filepath.Join(cfg.CachePath, "*", name))
		if len(matches) != 1 {
			t.Fatalf("Upload of %s not found in cache", name)
		}
		return matches[0]
	}
	oldPath := upload("old.pdf")
	freshPath := upload("fresh.pdf")
	openNow := upload("open.pdf")

	stale := time.Now().Add(-48 * time.Hour)
	for _, dir := range []string{filepath.Dir(oldPath), filepath.Dir(openNow)} {
		if err := os.Chtimes(dir, stale, stale); err != nil {
			t.Fatalf("Failed to age %s: %v", dir, err)
		}
	}

	removed, err := h.PruneCache(time.Now())
	if err != nil {
		t.Fatalf("PruneCache failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 cache entry removed, got %d", removed)
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("Old upload should be gone, stat returned %v", err)
	}
	for _, kept := range []string{freshPath, openNow} {
		if _, err := os.Stat(kept); err != nil {
			t.Errorf("Expected %s to be kept: %v", kept, err)
		}
	}
	if _, err := db.GetRecentDocumentByPath(oldPath); err != database.ErrNotFound {
		t.Errorf("Recent entry of pruned upload should be dropped, got %v", err)
	}
}

func TestPruneRecent(t *testing.T) {
	db := testDB(t)
	cfg := testConfig(t, config.VariantDesktop)
	cfg.RecentLimit = 2
	h, _ := setupTestHandler(t, cfg, db, map[string]int{"1.pdf": 1, "2.pdf": 1, "3.pdf": 1})

	for _, name := range []string{"1.pdf", "2.pdf", "3.pdf"} {
		if rec := openPath(t, h, testpdf.WriteFile(t, name, 1, "")); rec.Code != http.StatusOK {
			t.Fatalf("Open %s failed with %d", name, rec.Code)
		}
		time.Sleep(2 * time.Millisecond)
	}
	removed, err := h.PruneRecent()
	if err != nil {
		t.Fatalf("PruneRecent failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Expected 1 recent document removed, got %d", removed)
	}
}

func TestAboutAndSwagger(t *testing.T) {
	h, _ := setupTestHandler(t, testConfig(t, config.VariantDesktop), testDB(t), nil)

	rec := doRequest(h, http.MethodGet, "/api/about", nil, "")
	var about map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &about); err != nil {
		t.Fatalf("Failed to decode about info: %v", err)
	}
	if about["variant"] != config.VariantDesktop || about["databaseType"] != "sqlite" || about["zoom"] != 1.5 {
		t.Errorf("Unexpected about info %v", about)
	}

	rec = doRequest(h, http.MethodGet, "/api/swagger.json", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Swagger failed with %d", rec.Code)
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &doc); err != nil {
		t.Fatalf("Swagger document is not JSON: %v", err)
	}
	paths, _ := doc["paths"].(map[string]interface{})
	if _, ok := paths["/page/next"]; !ok {
		t.Error("Swagger document lacks /page/next")
	}
}

func TestUploadFileName(t *testing.T) {
	tests := map[string]string{
		"report.pdf":         "report.pdf",
		"../../etc/passwd":   "passwd.pdf",
		`C:\Users\me\cv.PDF`: "cv.PDF",
		"":                   "shared.pdf",
		"notes":              "notes.pdf",
	}
	for in, want := range tests {
		if got := uploadFileName(in); got != want {
			t.Errorf("uploadFileName(%q) = %q, want %q", in, got, want)
		}
	}
}
