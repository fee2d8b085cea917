package pdfrenderer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/drummonds/pdfreader/navigator"
)

type remoteDocument struct {
	id    string
	pages int
}

// RemoteRenderer renders through the stand-alone pdf-service over HTTP
type RemoteRenderer struct {
	ServiceURL string
	HTTPClient *http.Client
	docs       *handleTable[remoteDocument]
}

// OpenDocumentResponse is returned by the render service for an upload
type OpenDocumentResponse struct {
	ID        string `json:"id"`
	PageCount int    `json:"pageCount"`
	Error     string `json:"error,omitempty"`
}

// NewRemoteRenderer creates a client for the render service at serviceURL
func NewRemoteRenderer(serviceURL string) (*RemoteRenderer, error) {
	if serviceURL == "" {
		return nil, fmt.Errorf("remote renderer needs RENDER_SERVICE_URL")
	}
	return &RemoteRenderer{
		ServiceURL: strings.TrimRight(serviceURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		docs: newHandleTable[remoteDocument](),
	}, nil
}

// Name implements Renderer
func (r *RemoteRenderer) Name() string { return "remote" }

// OpenDocument uploads the PDF to the render service
func (r *RemoteRenderer) OpenDocument(src navigator.Source) (navigator.Handle, error) {
	data := src.Bytes()
	if src.IsPath() {
		var err error
		data, err = os.ReadFile(src.Path())
		if err != nil {
			return 0, fmt.Errorf("failed to read PDF file: %w", err)
		}
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("pdf", src.Name())
	if err != nil {
		return 0, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return 0, fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return 0, fmt.Errorf("failed to close writer: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, r.ServiceURL+"/documents", body)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to call render service: %w", err)
	}
	defer resp.Body.Close()

	var openResp OpenDocumentResponse
	if err := json.NewDecoder(resp.Body).Decode(&openResp); err != nil {
		return 0, fmt.Errorf("failed to decode render service response (status %d): %w", resp.StatusCode, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnprocessableEntity && openResp.ID != "":
		// the service parsed the document but found no pages; let the session decide
	case resp.StatusCode != http.StatusOK:
		return 0, fmt.Errorf("render service returned status %d: %s", resp.StatusCode, openResp.Error)
	}

	h := r.docs.add(remoteDocument{id: openResp.ID, pages: openResp.PageCount})
	Logger.Debug("Opened document on render service", "name", src.Name(), "remoteID", openResp.ID, "handle", h)
	return h, nil
}

// PageCount returns the count reported by the service at upload time
func (r *RemoteRenderer) PageCount(h navigator.Handle) int {
	doc, err := r.docs.get(h)
	if err != nil {
		return 0
	}
	return doc.pages
}

// RenderPage fetches the page as PNG and unpacks it to RGB
func (r *RemoteRenderer) RenderPage(h navigator.Handle, index int, zoom float64) (navigator.RasterImage, error) {
	doc, err := r.docs.get(h)
	if err != nil {
		return navigator.RasterImage{}, err
	}

	url := fmt.Sprintf("%s/documents/%s/pages/%d?zoom=%g", r.ServiceURL, doc.id, index, zoom)
	resp, err := r.HTTPClient.Get(url)
	if err != nil {
		return navigator.RasterImage{}, fmt.Errorf("failed to call render service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return navigator.RasterImage{}, fmt.Errorf("render service returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	img, err := imaging.Decode(resp.Body)
	if err != nil {
		return navigator.RasterImage{}, fmt.Errorf("failed to decode page image: %w", err)
	}
	return ToRaster(img), nil
}

// Close deletes the document on the service; unknown handles are ignored
func (r *RemoteRenderer) Close(h navigator.Handle) error {
	doc, ok := r.docs.remove(h)
	if !ok {
		return nil
	}
	return r.deleteRemote(doc.id)
}

func (r *RemoteRenderer) deleteRemote(id string) error {
	req, err := http.NewRequest(http.MethodDelete, r.ServiceURL+"/documents/"+id, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call render service: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("render service returned status %d on delete", resp.StatusCode)
	}
	return nil
}

// Shutdown deletes every document this client still holds on the service
func (r *RemoteRenderer) Shutdown() error {
	var firstErr error
	for _, doc := range r.docs.drain() {
		if err := r.deleteRemote(doc.id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
