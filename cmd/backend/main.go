package main

import (
	"flag"
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
)

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

// @title PDF Reader Backend API
// @version 1.0
// @description Page by page PDF viewer API. One document is open at a time, pages are rendered to PNG on demand.

// @contact.name API Support
// @contact.url https://github.com/drummonds/pdfreader

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8000
// @BasePath /api
// @schemes http https

// @tag.name Viewer
// @tag.description Opening documents and moving between pages

// @tag.name Recent
// @tag.description Recently read documents

// @tag.name Admin
// @tag.description Application information

// @tag.name Health
// @tag.description Service health check

func main() {
	// Parse command-line flags
	port := flag.String("port", "8000", "Port to run backend server on")
	flag.Parse()

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("🔧  PDF Reader Backend API Server")
	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("• API-only mode (no frontend)")
	fmt.Println("• All endpoints under /api/*, plus /share and the manifest")
	fmt.Println("• CORS enabled for frontend access")
	fmt.Println(strings.Repeat("=", 50) + "\n")

	viewerConfig, logger := config.SetupViewer()
	injectGlobals(logger) //inject the logger into all of the packages

	var repo database.Repository
	if viewerConfig.DatabaseType != "none" {
		db, err := database.NewRepository(viewerConfig)
		if err != nil {
			Logger.Error("Unable to set up database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		repo = db
	}

	renderer, err := pdfrenderer.NewRenderer(viewerConfig.Renderer, pdfrenderer.Options{ServiceURL: viewerConfig.RenderServiceURL})
	if err != nil {
		Logger.Error("Unable to start renderer", "renderer", viewerConfig.Renderer, "error", err)
		os.Exit(1)
	}
	defer renderer.Shutdown()

	e := echo.New()
	e.HideBanner = true

	// Custom 404 handler for API endpoints
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
		}

		if code == http.StatusNotFound {
			c.JSON(http.StatusNotFound, map[string]string{
				"error":   "Not Found",
				"message": "The requested API endpoint does not exist",
				"path":    c.Request().URL.Path,
			})
			return
		}

		e.DefaultHTTPErrorHandler(err, c)
	}

	serverHandler, err := engine.NewServerHandler(viewerConfig, renderer, repo, e)
	if err != nil {
		Logger.Error("Unable to create viewer", "error", err)
		os.Exit(1)
	}
	defer serverHandler.Close()

	Logger.Info("Initializing backend services...")
	scheduler := serverHandler.InitializeSchedules() //initialize all the cron jobs
	defer scheduler.Stop()
	if err := serverHandler.StartupChecks(); err != nil {
		Logger.Error("Startup checks failed", "error", err)
		os.Exit(1)
	}
	Logger.Info("Backend services initialized")

	// CORS configuration - allow frontend from different origin
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	// Request logging
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: "method=${method}, uri=${uri}, status=${status}, latency=${latency_human}\n",
	}))

	Logger.Info("Setting up API routes...")
	serverHandler.RegisterRoutes()

	// Health check endpoint
	e.GET("/api/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "healthy",
			"service": "PDF Reader Backend API",
		})
	})

	// Override port if specified via flag
	if *port != "8000" {
		viewerConfig.ListenAddrPort = *port
	}

	addr := fmt.Sprintf("%s:%s", viewerConfig.ListenAddrIP, viewerConfig.ListenAddrPort)
	Logger.Info("Starting Backend API Server", "address", addr)
	fmt.Printf("\n✅  Backend API Server running on %s\n", addr)
	fmt.Printf("📡  API endpoints available at http://%s/api/\n", addr)
	fmt.Printf("🏥  Health check: http://%s/api/health\n\n", addr)

	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		Logger.Error("Server failed to start", "error", err)
		os.Exit(1)
	}
}
