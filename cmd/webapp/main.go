//go:build js && wasm
// +build js,wasm

package main

import (
	"github.com/drummonds/pdfreader/webapp"
	"github.com/maxence-charriere/go-app/v10/pkg/app"
)

func main() {
	// Register routes for the client-side app - all use App component with the navbar
	for _, route := range webapp.Routes {
		app.Route(route, func() app.Composer { return &webapp.App{} })
	}

	// This main function is for the WASM build only
	// It initializes the go-app when running in the browser
	app.RunWhenOnBrowser()
}
