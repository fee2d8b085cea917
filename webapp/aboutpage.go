package webapp

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// AboutInfo represents the about information from the API
type AboutInfo struct {
	Version      string  `json:"version"`
	Variant      string  `json:"variant"`
	Renderer     string  `json:"renderer"`
	Zoom         float64 `json:"zoom"`
	DatabaseType string  `json:"databaseType"`
	DatabaseHost string  `json:"databaseHost"`
	DatabaseName string  `json:"databaseName"`
	CachePath    string  `json:"cachePath"`
	RecentLimit  int     `json:"recentLimit"`
}

// AboutPage displays information about the application
type AboutPage struct {
	app.Compo
	aboutInfo AboutInfo
	loading   bool
	error     string
}

// OnMount is called when the component is mounted
func (a *AboutPage) OnMount(ctx app.Context) {
	a.loading = true
	a.fetchAboutInfo(ctx)
}

// fetchAboutInfo fetches the about information from the API
func (a *AboutPage) fetchAboutInfo(ctx app.Context) {
	apiRequest(ctx, "GET", "/api/about", nil, "", func(ctx app.Context, code int, body string) {
		a.loading = false
		if code != 200 {
			a.error = "Network error"
			return
		}
		if err := json.Unmarshal([]byte(body), &a.aboutInfo); err != nil {
			a.error = fmt.Sprintf("Failed to parse response: %v", err)
		}
	})
}

// Render renders the about page
func (a *AboutPage) Render() app.UI {
	if a.loading {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About PDF Reader"),
			app.Div().Class("loading").Body(app.Text("Loading...")),
		)
	}

	if a.error != "" {
		return app.Div().Class("about-page").Body(
			app.H2().Text("About PDF Reader"),
			app.Div().Class("error").Body(app.Text("Error: "+a.error)),
		)
	}

	return app.Div().Class("about-page").Body(
		app.H2().Text("About PDF Reader"),
		app.Div().Class("about-content").Body(
			app.Div().Class("about-section").Body(
				app.H3().Text("Application Information"),
				app.Div().Class("info-grid").Body(
					a.renderInfoItem("Version", a.aboutInfo.Version),
					a.renderInfoItem("Variant", a.getVariantDisplay()),
					a.renderInfoItem("Renderer", a.getRendererDisplay()),
					a.renderInfoItem("Zoom", a.getZoomDisplay()),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Recent Documents"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Database Type: "),
						app.Text(a.getDatabaseDisplay()),
					),
					app.If(a.aboutInfo.DatabaseType == "postgres" || a.aboutInfo.DatabaseType == "cockroachdb", func() app.UI {
						return app.P().Body(
							app.Strong().Text("Host: "),
							app.Text(a.aboutInfo.DatabaseHost),
						)
					}),
					app.P().Body(
						app.Strong().Text("Database Name: "),
						app.Text(a.aboutInfo.DatabaseName),
					),
					app.P().Body(
						app.Strong().Text("Entries Kept: "),
						app.Text(strconv.Itoa(a.aboutInfo.RecentLimit)),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("Document Cache"),
				app.Div().Class("config-details").Body(
					app.P().Body(
						app.Strong().Text("Cache Path: "),
						app.Text(a.aboutInfo.CachePath),
					),
				),
			),
			app.Div().Class("about-section").Body(
				app.H3().Text("About PDF Reader"),
				app.P().Text("PDF Reader shows one page of a PDF at a time, rendered to an image on the server."),
				app.P().Text("Documents can be opened from a path, uploaded, or shared from another app on mobile."),
			),
		),
	)
}

// renderInfoItem creates an info item display
func (a *AboutPage) renderInfoItem(label, value string) app.UI {
	return app.Div().Class("info-item").Body(
		app.Div().Class("info-label").Body(app.Text(label)),
		app.Div().Class("info-value").Body(app.Text(value)),
	)
}

// getDatabaseDisplay returns a user-friendly database display name
func (a *AboutPage) getDatabaseDisplay() string {
	switch a.aboutInfo.DatabaseType {
	case "postgres":
		return "PostgreSQL"
	case "cockroachdb":
		return "CockroachDB"
	case "sqlite":
		return "SQLite"
	case "ephemeral":
		return "Ephemeral PostgreSQL"
	case "none":
		return "Disabled"
	default:
		return a.aboutInfo.DatabaseType
	}
}

// getRendererDisplay names the rasterizer backend
func (a *AboutPage) getRendererDisplay() string {
	switch a.aboutInfo.Renderer {
	case "fitz":
		return "MuPDF"
	case "pdfium":
		return "PDFium"
	case "remote":
		return "Render Service"
	default:
		return a.aboutInfo.Renderer
	}
}

func (a *AboutPage) getVariantDisplay() string {
	if a.aboutInfo.Variant == "mobile" {
		return "Mobile (share target)"
	}
	return "Desktop"
}

func (a *AboutPage) getZoomDisplay() string {
	return strconv.FormatFloat(a.aboutInfo.Zoom, 'f', -1, 64) + "x"
}
