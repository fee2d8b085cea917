package engine

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	"github.com/swaggo/swag"

	"github.com/drummonds/pdfreader/database"
	"github.com/drummonds/pdfreader/docs"
	"github.com/drummonds/pdfreader/internal/build"
	"github.com/drummonds/pdfreader/navigator"
)

type openRequest struct {
	Path string `json:"path"`
}

// recentDocumentView is a recent document as listed by the API
type recentDocumentView struct {
	database.RecentDocument
	DisplayName string `json:"displayName"`
	Current     bool   `json:"current"`
}

// RegisterRoutes adds all of the viewer API routes to the echo instance
func (serverHandler *ServerHandler) RegisterRoutes() {
	e := serverHandler.Echo

	// Viewer API routes
	e.GET("/api/navigation", serverHandler.GetNavigation)
	e.POST("/api/document/open", serverHandler.OpenDocument)
	e.POST("/api/document/upload", serverHandler.UploadDocument)
	e.POST("/api/page/next", serverHandler.NextPage)
	e.POST("/api/page/previous", serverHandler.PreviousPage)
	e.POST("/api/page/first", serverHandler.FirstPage)
	e.POST("/api/page/last", serverHandler.LastPage)
	e.POST("/api/page/goto", serverHandler.GotoPage)
	e.GET("/api/page/image", serverHandler.GetPageImage)

	// Recent documents API routes
	e.GET("/api/recent", serverHandler.GetRecentDocuments)
	e.POST("/api/recent/:id/open", serverHandler.OpenRecentDocument)
	e.DELETE("/api/recent/:id", serverHandler.DeleteRecentDocument)

	// Admin API routes
	e.GET("/api/about", serverHandler.GetAboutInfo)
	e.GET("/api/swagger.json", serverHandler.GetSwagger)

	// Share target and manifest are not JSON APIs, so not under /api/*
	e.POST("/share", serverHandler.ShareDocument)
	e.GET("/manifest.webmanifest", serverHandler.GetManifest)
}

// viewerResponse writes the status, mapping viewer errors onto HTTP codes
func viewerResponse(c echo.Context, status ViewerStatus, err error) error {
	if err == nil {
		return c.JSON(http.StatusOK, status)
	}
	return c.JSON(errorCode(err), map[string]interface{}{
		"error":  err.Error(),
		"viewer": status,
	})
}

func errorCode(err error) int {
	switch {
	case errors.Is(err, navigator.ErrInvalidDocument), errors.Is(err, navigator.ErrEmptyDocument):
		return http.StatusUnprocessableEntity
	case errors.Is(err, navigator.ErrNoDocumentLoaded):
		return http.StatusConflict
	case errors.Is(err, navigator.ErrPageOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// GetNavigation returns the viewer status
// @Summary Get viewer status
// @Description Navigation state, page label and status text of the viewer
// @Tags Viewer
// @Produce json
// @Success 200 {object} ViewerStatus "Viewer status"
// @Router /navigation [get]
func (serverHandler *ServerHandler) GetNavigation(c echo.Context) error {
	return c.JSON(http.StatusOK, serverHandler.Status())
}

// OpenDocument opens a PDF from a local path
// @Summary Open a local PDF
// @Description Open a PDF from a path on the server machine, replacing the current document
// @Tags Viewer
// @Accept json
// @Produce json
// @Param request body openRequest true "Path of the PDF"
// @Success 200 {object} ViewerStatus "Document opened"
// @Failure 400 {object} map[string]interface{} "Missing path"
// @Failure 422 {object} map[string]interface{} "Invalid or empty PDF"
// @Router /document/open [post]
func (serverHandler *ServerHandler) OpenDocument(c echo.Context) error {
	var request openRequest
	if err := c.Bind(&request); err != nil || request.Path == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "A path is required",
		})
	}
	status, err := serverHandler.OpenFile(request.Path, "", 0)
	return viewerResponse(c, status, err)
}

// UploadDocument opens a PDF uploaded from the browser
// @Summary Upload and open a PDF
// @Description Store the uploaded PDF in the cache folder and open it
// @Tags Viewer
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "PDF file"
// @Success 200 {object} ViewerStatus "Document opened"
// @Failure 400 {object} map[string]interface{} "No file provided"
// @Failure 422 {object} map[string]interface{} "Invalid or empty PDF"
// @Router /document/upload [post]
func (serverHandler *ServerHandler) UploadDocument(c echo.Context) error {
	file, fileHeader, err := c.Request().FormFile("file")
	if err != nil {
		Logger.Debug("Upload without file", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "No PDF file provided",
		})
	}
	defer file.Close()

	status, err := serverHandler.OpenUpload(fileHeader.Filename, file)
	return viewerResponse(c, status, err)
}

// ShareDocument receives a PDF from the system share sheet (PWA share target).
// The browser is sent back to the viewer, which shows the outcome.
func (serverHandler *ServerHandler) ShareDocument(c echo.Context) error {
	file, fileHeader, err := c.Request().FormFile("pdf")
	if err != nil {
		Logger.Warn("Share without PDF", "error", err)
		return c.String(http.StatusBadRequest, "No PDF shared")
	}
	defer file.Close()

	Logger.Info("Receiving shared PDF", "name", fileHeader.Filename)
	if _, err := serverHandler.OpenUpload(fileHeader.Filename, file); err != nil {
		Logger.Warn("Shared PDF could not be opened", "name", fileHeader.Filename, "error", err)
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// NextPage moves to the next page
// @Summary Next page
// @Description Advance one page, at the last page the state is returned unchanged
// @Tags Viewer
// @Produce json
// @Success 200 {object} ViewerStatus "Viewer status"
// @Failure 409 {object} map[string]interface{} "No document loaded"
// @Router /page/next [post]
func (serverHandler *ServerHandler) NextPage(c echo.Context) error {
	status, err := serverHandler.Navigate((*navigator.Session).Advance)
	return viewerResponse(c, status, err)
}

// PreviousPage moves to the previous page
// @Summary Previous page
// @Description Go back one page, at the first page the state is returned unchanged
// @Tags Viewer
// @Produce json
// @Success 200 {object} ViewerStatus "Viewer status"
// @Failure 409 {object} map[string]interface{} "No document loaded"
// @Router /page/previous [post]
func (serverHandler *ServerHandler) PreviousPage(c echo.Context) error {
	status, err := serverHandler.Navigate((*navigator.Session).Retreat)
	return viewerResponse(c, status, err)
}

// FirstPage jumps to the first page
// @Summary First page
// @Tags Viewer
// @Produce json
// @Success 200 {object} ViewerStatus "Viewer status"
// @Failure 409 {object} map[string]interface{} "No document loaded"
// @Router /page/first [post]
func (serverHandler *ServerHandler) FirstPage(c echo.Context) error {
	status, err := serverHandler.Navigate((*navigator.Session).First)
	return viewerResponse(c, status, err)
}

// LastPage jumps to the last page
// @Summary Last page
// @Tags Viewer
// @Produce json
// @Success 200 {object} ViewerStatus "Viewer status"
// @Failure 409 {object} map[string]interface{} "No document loaded"
// @Router /page/last [post]
func (serverHandler *ServerHandler) LastPage(c echo.Context) error {
	status, err := serverHandler.Navigate((*navigator.Session).Last)
	return viewerResponse(c, status, err)
}

// GotoPage jumps to a 1-based page number
// @Summary Go to page
// @Tags Viewer
// @Produce json
// @Param page query int true "Page number, starting at 1"
// @Success 200 {object} ViewerStatus "Viewer status"
// @Failure 400 {object} map[string]interface{} "Page out of range"
// @Failure 409 {object} map[string]interface{} "No document loaded"
// @Router /page/goto [post]
func (serverHandler *ServerHandler) GotoPage(c echo.Context) error {
	page, err := strconv.Atoi(c.QueryParam("page"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "page must be a number",
		})
	}
	status, err := serverHandler.Navigate(func(s *navigator.Session) (int, error) {
		return s.Seek(page - 1)
	})
	return viewerResponse(c, status, err)
}

// GetPageImage returns the current page as PNG
// @Summary Current page image
// @Description Render the current page at the session zoom, optionally scaled down to a width
// @Tags Viewer
// @Produce png
// @Param width query int false "Maximum width in pixels"
// @Success 200 {file} binary "PNG image"
// @Failure 409 {object} map[string]interface{} "No document loaded"
// @Failure 500 {object} map[string]interface{} "Render failed"
// @Router /page/image [get]
func (serverHandler *ServerHandler) GetPageImage(c echo.Context) error {
	width := 0
	if widthParam := c.QueryParam("width"); widthParam != "" {
		if w, err := strconv.Atoi(widthParam); err == nil && w > 0 {
			width = w
		}
	}
	if width == 0 && serverHandler.Config.IsMobile() {
		width = serverHandler.Config.MobileImageWidth
	}

	data, err := serverHandler.RenderPNG(width)
	if err != nil {
		return viewerResponse(c, serverHandler.Status(), err)
	}
	c.Response().Header().Set("Cache-Control", "no-store")
	return c.Blob(http.StatusOK, "image/png", data)
}

// GetRecentDocuments lists the reading history
// @Summary Recent documents
// @Tags Recent
// @Produce json
// @Param limit query int false "Maximum number of documents"
// @Success 200 {array} recentDocumentView "Recent documents, newest first"
// @Failure 503 {object} map[string]interface{} "Recent documents disabled"
// @Router /recent [get]
func (serverHandler *ServerHandler) GetRecentDocuments(c echo.Context) error {
	if serverHandler.DB == nil {
		return recentDisabled(c)
	}
	limit := serverHandler.Config.RecentLimit
	if limitParam := c.QueryParam("limit"); limitParam != "" {
		if l, err := strconv.Atoi(limitParam); err == nil && l > 0 {
			limit = l
		}
	}

	documents, err := serverHandler.DB.GetRecentDocuments(limit)
	if err != nil {
		Logger.Error("Can't find recent documents", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to fetch recent documents",
		})
	}

	currentID := serverHandler.Status().RecentID
	views := make([]recentDocumentView, 0, len(documents))
	for _, doc := range documents {
		views = append(views, recentDocumentView{
			RecentDocument: doc,
			DisplayName:    doc.DisplayName(),
			Current:        doc.ID.String() == currentID,
		})
	}
	return c.JSON(http.StatusOK, views)
}

// OpenRecentDocument reopens a document where the reader left off
// @Summary Reopen a recent document
// @Tags Recent
// @Produce json
// @Param id path string true "Recent document ULID"
// @Success 200 {object} ViewerStatus "Document opened"
// @Failure 400 {object} map[string]interface{} "Bad id"
// @Failure 404 {object} map[string]interface{} "Unknown document"
// @Failure 422 {object} map[string]interface{} "Document no longer readable"
// @Router /recent/{id}/open [post]
func (serverHandler *ServerHandler) OpenRecentDocument(c echo.Context) error {
	if serverHandler.DB == nil {
		return recentDisabled(c)
	}
	doc, code, err := serverHandler.lookupRecent(c.Param("id"))
	if err != nil {
		return c.JSON(code, map[string]interface{}{
			"error": err.Error(),
		})
	}
	status, err := serverHandler.OpenFile(doc.Path, doc.Name, doc.LastPage)
	return viewerResponse(c, status, err)
}

// DeleteRecentDocument removes a document from the reading history
// @Summary Forget a recent document
// @Tags Recent
// @Produce json
// @Param id path string true "Recent document ULID"
// @Success 200 {object} map[string]interface{} "Deleted"
// @Failure 400 {object} map[string]interface{} "Bad id"
// @Failure 404 {object} map[string]interface{} "Unknown document"
// @Router /recent/{id} [delete]
func (serverHandler *ServerHandler) DeleteRecentDocument(c echo.Context) error {
	if serverHandler.DB == nil {
		return recentDisabled(c)
	}
	doc, code, err := serverHandler.lookupRecent(c.Param("id"))
	if err != nil {
		return c.JSON(code, map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := serverHandler.DB.DeleteRecentDocument(doc.ID); err != nil {
		Logger.Error("Unable to delete recent document", "id", doc.ID, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "Failed to delete recent document",
		})
	}
	serverHandler.forgetRecent(doc.ID)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Recent document deleted",
		"id":      doc.ID.String(),
	})
}

// lookupRecent resolves an :id parameter into a recent document and the HTTP code to fail with
func (serverHandler *ServerHandler) lookupRecent(idParam string) (*database.RecentDocument, int, error) {
	id, err := ulid.Parse(idParam)
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("invalid document id")
	}
	doc, err := serverHandler.DB.GetRecentDocument(id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, http.StatusNotFound, err
	}
	if err != nil {
		Logger.Error("Unable to fetch recent document", "id", id, "error", err)
		return nil, http.StatusInternalServerError, errors.New("failed to fetch recent document")
	}
	return doc, http.StatusOK, nil
}

func recentDisabled(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
		"error": "Recent documents are disabled",
	})
}

// GetAboutInfo returns information about the application configuration
// @Summary Get application information
// @Description Retrieve information about the application configuration, version, and database
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]interface{} "Application information"
// @Router /about [get]
func (serverHandler *ServerHandler) GetAboutInfo(c echo.Context) error {
	dbType := "none"
	if serverHandler.DB != nil {
		dbType = serverHandler.DB.Type()
	}

	aboutInfo := map[string]interface{}{
		"version":      build.Version,
		"variant":      serverHandler.Config.Variant,
		"renderer":     serverHandler.Config.Renderer,
		"zoom":         serverHandler.Config.ZoomFactor,
		"databaseType": dbType,
		"databaseHost": serverHandler.Config.DatabaseHost,
		"databaseName": serverHandler.Config.DatabaseDbname,
		"cachePath":    serverHandler.Config.CachePath,
		"recentLimit":  serverHandler.Config.RecentLimit,
	}

	return c.JSON(http.StatusOK, aboutInfo)
}

// GetSwagger serves the OpenAPI document
func (serverHandler *ServerHandler) GetSwagger(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		Logger.Error("Unable to read API documentation", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]interface{}{
			"error": "API documentation unavailable",
		})
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, []byte(doc))
}
