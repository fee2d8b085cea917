package main

import (
	"embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	config "github.com/drummonds/pdfreader/config"
	database "github.com/drummonds/pdfreader/database"
	engine "github.com/drummonds/pdfreader/engine"
	"github.com/drummonds/pdfreader/engine/pdfrenderer"
	"github.com/drummonds/pdfreader/webapp"
)

//go:embed webapp/webapp.css
var webappFS embed.FS

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// injectGlobals injects all of our globals into their packages
func injectGlobals(logger *slog.Logger) {
	Logger = logger
	database.Logger = Logger
	config.Logger = Logger
	engine.Logger = Logger
	pdfrenderer.Logger = Logger
}

// openRepository connects the recent documents store, DATABASE_TYPE=none disables it
func openRepository(cfg config.ViewerConfig) (database.Repository, error) {
	if cfg.DatabaseType == "none" {
		Logger.Info("Recent documents disabled")
		return nil, nil
	}
	db, err := database.NewRepository(cfg)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// newServer builds the echo instance with the viewer API, share target and web app
func newServer(cfg config.ViewerConfig, renderer pdfrenderer.Renderer, db database.Repository) (*echo.Echo, *engine.ServerHandler, error) {
	e := echo.New()
	e.HideBanner = true

	// Custom 404 handler
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound && strings.HasPrefix(c.Request().URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler, err := engine.NewServerHandler(cfg, renderer, db, e)
	if err != nil {
		return nil, nil, err
	}
	if err := serverHandler.StartupChecks(); err != nil {
		return nil, nil, err
	}

	e.Use(middleware.CORSWithConfig(middleware.DefaultCORSConfig))
	e.Use(middleware.Recover())

	// Viewer API, share target and the web manifest
	serverHandler.RegisterRoutes()
	e.Any("/api/*", func(c echo.Context) error {
		return echo.ErrNotFound
	})

	Logger.Info("Setting up go-app WASM UI")
	appHandler := webapp.Handler()

	// wasm_exec.js and app.wasm are produced by the build, not embedded
	e.GET("/wasm_exec.js", func(c echo.Context) error {
		return c.File("web/wasm_exec.js")
	})
	e.Static("/web", "web")

	// Register go-app specific resources
	e.GET("/app.js", echo.WrapHandler(appHandler))
	e.GET("/app.css", echo.WrapHandler(appHandler))

	// Serve CSS files from embedded filesystem
	e.GET("/webapp/webapp.css", func(c echo.Context) error {
		data, err := webappFS.ReadFile("webapp/webapp.css")
		if err != nil {
			return c.String(http.StatusNotFound, "webapp.css not found")
		}
		return c.Blob(http.StatusOK, "text/css", data)
	})

	// Inject backend API URL into the page
	e.GET("/config.js", configScript(cfg.FrontEndConfig))

	// Serve go-app handler for all other routes (must be last)
	// The WASM app handles its own client-side routing and 404s via NotFoundPage component
	e.Any("/*", echo.WrapHandler(appHandler))

	return e, serverHandler, nil
}

// configScript serves window.pdfreaderConfig for the web app
func configScript(cfg config.FrontEndConfig) echo.HandlerFunc {
	return func(c echo.Context) error {
		configJS := fmt.Sprintf(`
// PDF Reader Frontend Configuration
window.pdfreaderConfig = {
    apiURL: "%s",
    mobileImageWidth: %d
};
`, cfg.ServerAPIURL, cfg.MobileImageWidth)
		c.Response().Header().Set("Content-Type", "application/javascript")
		return c.String(http.StatusOK, configJS)
	}
}

func main() {
	viewerConfig, logger := config.SetupViewer()
	injectGlobals(logger) //inject the logger into all of the packages

	// Show info banner if using ephemeral database
	if viewerConfig.DatabaseType == "ephemeral" {
		fmt.Println("\n" + strings.Repeat("=", 50))
		fmt.Println("🚀  EPHEMERAL DATABASE MODE")
		fmt.Println(strings.Repeat("=", 50))
		fmt.Println("• Recent documents are lost on exit")
		fmt.Println(strings.Repeat("=", 50) + "\n")
	}

	Logger.Info("Setting up database", "type", viewerConfig.DatabaseType)
	db, err := openRepository(viewerConfig)
	if err != nil {
		Logger.Error("Unable to set up database", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	renderer, err := pdfrenderer.NewRenderer(viewerConfig.Renderer, pdfrenderer.Options{ServiceURL: viewerConfig.RenderServiceURL})
	if err != nil {
		Logger.Error("Unable to start renderer", "renderer", viewerConfig.Renderer, "error", err)
		os.Exit(1)
	}
	defer renderer.Shutdown()

	e, serverHandler, err := newServer(viewerConfig, renderer, db)
	if err != nil {
		Logger.Error("Unable to set up server", "error", err)
		os.Exit(1)
	}
	defer serverHandler.Close()

	scheduler := serverHandler.InitializeSchedules()
	defer scheduler.Stop()

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	if viewerConfig.ListenAddrIP == "" {
		Logger.Info("No Ip Addr set, binding on ALL addresses")
	}

	Logger.Info("Starting HTTP server", "variant", viewerConfig.Variant)

	// Try to start server with automatic port increment if port is in use
	maxRetries := 5
	startPort := viewerConfig.ListenAddrPort
	var startErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		addr := fmt.Sprintf("%s:%s", viewerConfig.ListenAddrIP, viewerConfig.ListenAddrPort)
		Logger.Info("Attempting to start server", "address", addr, "attempt", attempt+1)

		startErr = e.Start(addr)

		if startErr != nil && isAddressInUse(startErr) {
			Logger.Warn("Port already in use, trying next port",
				"port", viewerConfig.ListenAddrPort,
				"attempt", attempt+1,
				"max_attempts", maxRetries)

			portNum := 0
			fmt.Sscanf(viewerConfig.ListenAddrPort, "%d", &portNum)
			portNum++
			viewerConfig.ListenAddrPort = fmt.Sprintf("%d", portNum)

			if attempt == maxRetries-1 {
				Logger.Error("Failed to find available port after maximum retries",
					"start_port", startPort,
					"end_port", viewerConfig.ListenAddrPort,
					"max_retries", maxRetries)
				os.Exit(1)
			}
		} else if startErr != nil && startErr != http.ErrServerClosed {
			Logger.Error("Failed to start server", "error", startErr)
			os.Exit(1)
		} else {
			break
		}
	}

	if viewerConfig.ListenAddrPort != startPort {
		Logger.Warn("Server started on alternative port due to conflicts",
			"requested_port", startPort,
			"actual_port", viewerConfig.ListenAddrPort)
	}
}

// isAddressInUse checks if the error is due to address already in use
func isAddressInUse(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "address already in use")
}
