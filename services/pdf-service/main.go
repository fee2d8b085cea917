package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"
)

// OpenDocumentResponse is returned for an uploaded document
type OpenDocumentResponse struct {
	ID        string `json:"id,omitempty"`
	PageCount int    `json:"pageCount"`
	Title     string `json:"title,omitempty"`
	Error     string `json:"error,omitempty"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Documents int    `json:"documents"`
	Timestamp string `json:"timestamp"`
}

// document is one open MuPDF document. MuPDF documents are not safe for
// concurrent use, so every render holds mu.
type document struct {
	mu       sync.Mutex
	doc      *fitz.Document
	pages    int
	lastUsed time.Time
}

// store holds the open documents by id
type store struct {
	mu      sync.Mutex
	docs    map[string]*document
	maxZoom float64
}

func newStore() *store {
	return &store{docs: map[string]*document{}, maxZoom: 8}
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}
	idle := 30 * time.Minute
	if v := os.Getenv("IDLE_TIMEOUT_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			idle = time.Duration(n) * time.Minute
		}
	}

	s := newStore()
	go func() {
		for range time.Tick(time.Minute) {
			if n := s.expire(time.Now().Add(-idle)); n > 0 {
				log.Printf("Closed %d idle documents", n)
			}
		}
	}()

	log.Printf("Starting PDF render service on port %s", port)
	if err := http.ListenAndServe(":"+port, s.routes()); err != nil {
		log.Fatal(err)
	}
}

func (s *store) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("POST /documents", s.openHandler)
	mux.HandleFunc("GET /documents/{id}/pages/{page}", s.pageHandler)
	mux.HandleFunc("DELETE /documents/{id}", s.deleteHandler)
	return mux
}

func (s *store) healthHandler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	n := len(s.docs)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Documents: n,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// openHandler keeps an uploaded PDF open until it is deleted or idles out.
// A document without pages is still stored and answered with 422, so the
// client can tell it apart from one that could not be parsed.
func (s *store) openHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSON(w, http.StatusBadRequest, OpenDocumentResponse{Error: "Failed to parse form"})
		return
	}
	file, header, err := r.FormFile("pdf")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, OpenDocumentResponse{Error: "No PDF file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, OpenDocumentResponse{Error: "Failed to read PDF file"})
		return
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		log.Printf("Unable to open %s: %v", header.Filename, err)
		writeJSON(w, http.StatusUnprocessableEntity, OpenDocumentResponse{Error: fmt.Sprintf("Invalid PDF: %v", err)})
		return
	}

	id := ulid.Make().String()
	entry := &document{doc: doc, pages: doc.NumPage(), lastUsed: time.Now()}
	s.mu.Lock()
	s.docs[id] = entry
	s.mu.Unlock()

	resp := OpenDocumentResponse{ID: id, PageCount: entry.pages, Title: documentTitle(data)}
	log.Printf("Opened %s as %s with %d pages", header.Filename, id, entry.pages)
	if entry.pages == 0 {
		resp.Error = "PDF contains no pages"
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// pageHandler renders a 0-based page as PNG at 72*zoom DPI
func (s *store) pageHandler(w http.ResponseWriter, r *http.Request) {
	entry := s.get(r.PathValue("id"))
	if entry == nil {
		sendErrorResponse(w, "Unknown document", http.StatusNotFound)
		return
	}
	page, err := strconv.Atoi(r.PathValue("page"))
	if err != nil || page < 0 || page >= entry.pages {
		sendErrorResponse(w, fmt.Sprintf("Page out of range: %s", r.PathValue("page")), http.StatusBadRequest)
		return
	}
	zoom, err := parseZoom(r.URL.Query().Get("zoom"), s.maxZoom)
	if err != nil {
		sendErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	entry.mu.Lock()
	entry.lastUsed = time.Now()
	img, err := entry.doc.ImageDPI(page, 72*zoom)
	entry.mu.Unlock()
	if err != nil {
		log.Printf("Render error: %v", err)
		sendErrorResponse(w, fmt.Sprintf("Render failed: %v", err), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		sendErrorResponse(w, "Failed to encode image", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

func (s *store) deleteHandler(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	entry, ok := s.docs[id]
	delete(s.docs, id)
	s.mu.Unlock()
	if !ok {
		sendErrorResponse(w, "Unknown document", http.StatusNotFound)
		return
	}
	entry.close()
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (s *store) get(id string) *document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[id]
}

// expire closes documents not used since cutoff
func (s *store) expire(cutoff time.Time) int {
	var stale []*document
	s.mu.Lock()
	for id, entry := range s.docs {
		entry.mu.Lock()
		idle := entry.lastUsed.Before(cutoff)
		entry.mu.Unlock()
		if idle {
			stale = append(stale, entry)
			delete(s.docs, id)
		}
	}
	s.mu.Unlock()

	for _, entry := range stale {
		entry.close()
	}
	return len(stale)
}

func (d *document) close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.doc.Close(); err != nil {
		log.Printf("Close error: %v", err)
	}
}

// parseZoom defaults to 1 and rejects values outside (0, max]
func parseZoom(v string, max float64) (float64, error) {
	if v == "" {
		return 1, nil
	}
	zoom, err := strconv.ParseFloat(v, 64)
	if err != nil || zoom <= 0 || zoom > max {
		return 0, errors.New("zoom must be a number between 0 and " + strconv.FormatFloat(max, 'f', -1, 64))
	}
	return zoom, nil
}

// documentTitle reads the Info dictionary title, the reader panics on some
// malformed trailers
func documentTitle(data []byte) (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(reader.Trailer().Key("Info").Key("Title").Text())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
