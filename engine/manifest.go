package engine

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Description     string         `json:"description"`
	StartURL        string         `json:"start_url"`
	Scope           string         `json:"scope"`
	Display         string         `json:"display"`
	BackgroundColor string         `json:"background_color"`
	ThemeColor      string         `json:"theme_color"`
	Icons           []manifestIcon `json:"icons"`
	ShareTarget     *shareTarget   `json:"share_target,omitempty"`
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

// shareTarget lets the installed PWA appear in the system share sheet for PDFs
type shareTarget struct {
	Action  string      `json:"action"`
	Method  string      `json:"method"`
	Enctype string      `json:"enctype"`
	Params  shareParams `json:"params"`
}

type shareParams struct {
	Files []shareFile `json:"files"`
}

type shareFile struct {
	Name   string   `json:"name"`
	Accept []string `json:"accept"`
}

func (serverHandler *ServerHandler) manifest() webManifest {
	m := webManifest{
		Name:            "PDF Reader",
		ShortName:       "PDF Reader",
		Description:     "Page by page PDF viewer",
		StartURL:        "/",
		Scope:           "/",
		Display:         "standalone",
		BackgroundColor: "#ffffff",
		ThemeColor:      "#2c3e50",
		Icons: []manifestIcon{
			{Src: "/favicon.ico", Sizes: "64x64", Type: "image/x-icon"},
		},
	}
	if serverHandler.Config.IsMobile() {
		m.ShareTarget = &shareTarget{
			Action:  "/share",
			Method:  http.MethodPost,
			Enctype: "multipart/form-data",
			Params: shareParams{
				Files: []shareFile{{Name: "pdf", Accept: []string{"application/pdf", ".pdf"}}},
			},
		}
	}
	return m
}

// GetManifest serves the PWA manifest, the mobile variant registers as a share target
func (serverHandler *ServerHandler) GetManifest(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/manifest+json")
	return c.JSON(http.StatusOK, serverHandler.manifest())
}
