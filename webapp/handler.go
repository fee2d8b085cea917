package webapp

import (
	"net/http"

	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

// Routes served by the web app, everything else renders NotFoundPage
var Routes = []string{"/", "/recent", "/about"}

// Handler returns an HTTP handler for the web app
func Handler() http.Handler {
	for _, route := range Routes {
		app.Route(route, func() app.Composer { return &App{} })
	}
	app.RunWhenOnBrowser()

	// wasm_exec.js is served at /wasm_exec.js by Echo
	// app.wasm is served from /web/app.wasm by Echo
	// manifest.webmanifest comes from the engine so the mobile variant can add a share target
	return &app.Handler{
		Name:        "PDF Reader",
		ShortName:   "PDF Reader",
		Title:       "PDF Reader",
		Description: "Page by page PDF viewer",
		Styles: []string{
			"/webapp/webapp.css",
		},
		Scripts: []string{
			"/config.js", // Load backend API configuration
		},
		RawHeaders: []string{
			`<meta name="viewport" content="width=device-width, initial-scale=1">`,
		},
	}
}
