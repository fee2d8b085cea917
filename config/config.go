package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger

// Viewer variants. They differ in zoom, status text and how documents arrive.
const (
	VariantDesktop = "desktop"
	VariantMobile  = "mobile"
)

// Default zoom factors per variant, higher on mobile for sharper pages
const (
	DefaultDesktopZoom = 1.5
	DefaultMobileZoom  = 2.0
)

// ViewerConfig contains all of the viewer server settings
type ViewerConfig struct {
	Variant          string
	ZoomFactor       float64
	Renderer         string
	RenderServiceURL string
	ListenAddrIP     string
	ListenAddrPort   string
	DatabaseType     string
	DatabaseHost     string
	DatabasePort     string
	DatabaseUser     string
	DatabasePassword string `json:"-"`
	DatabaseDbname   string
	DatabaseSslmode  string
	CachePath        string // absolute path where uploaded and shared PDFs are kept
	CacheMaxAge      time.Duration
	PruneInterval    int // minutes between cache prune runs
	RecentLimit      int
	InitialDocument  string
	FrontEndConfig
}

// FrontEndConfig stores all of the frontend settings
type FrontEndConfig struct {
	ServerAPIURL     string
	MobileImageWidth int
}

// IsMobile reports whether the mobile (share target) variant is configured
func (c ViewerConfig) IsMobile() bool {
	return c.Variant == VariantMobile
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intVal, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return intVal
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatVal, err := strconv.ParseFloat(value, 64)
	if err != nil || floatVal <= 0 {
		return defaultValue
	}
	return floatVal
}

// loadEnvFiles loads .env files, silently ignoring the ones that don't exist
func loadEnvFiles(extra ...string) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("config.env")
	for _, f := range extra {
		_ = godotenv.Load(f)
	}
}

// SetupViewer loads configuration and returns ViewerConfig and Logger
func SetupViewer() (ViewerConfig, *slog.Logger) {
	loadEnvFiles()

	logger := SetupLogging()
	Logger = logger

	return LoadViewer(logger), logger
}

// LoadViewer reads the viewer configuration from the environment
func LoadViewer(logger *slog.Logger) ViewerConfig {
	cfg := ViewerConfig{}

	cfg.Variant = getEnv("VIEWER_VARIANT", VariantDesktop)
	defaultZoom := DefaultDesktopZoom
	switch cfg.Variant {
	case VariantDesktop:
	case VariantMobile:
		defaultZoom = DefaultMobileZoom
	default:
		logger.Warn("Unknown viewer variant, using desktop", "variant", cfg.Variant)
		cfg.Variant = VariantDesktop
	}
	cfg.ZoomFactor = getEnvFloat("ZOOM_FACTOR", defaultZoom)

	// Rendering back end
	cfg.Renderer = getEnv("RENDERER", "fitz")
	cfg.RenderServiceURL = getEnv("RENDER_SERVICE_URL", "http://localhost:8002")
	logger.Info("Renderer configuration loaded", "renderer", cfg.Renderer, "zoom", cfg.ZoomFactor, "variant", cfg.Variant)

	// Server configuration
	cfg.ListenAddrPort = getEnv("SERVER_PORT", "8000")
	cfg.ListenAddrIP = getEnv("SERVER_ADDR", "")

	// Database configuration
	cfg.DatabaseType = getEnv("DATABASE_TYPE", "sqlite")
	cfg.DatabaseHost = getEnv("DATABASE_HOST", "localhost")
	cfg.DatabasePort = getEnv("DATABASE_PORT", "5432")
	cfg.DatabaseUser = getEnv("DATABASE_USER", "pdfreader")
	cfg.DatabasePassword = getEnv("DATABASE_PASSWORD", "")
	cfg.DatabaseDbname = getEnv("DATABASE_NAME", "databases/pdfreader.sqlite")
	cfg.DatabaseSslmode = getEnv("DATABASE_SSLMODE", "disable")
	logger.Info("Database configuration loaded", "type", cfg.DatabaseType)

	// Cache for uploaded and shared documents
	cachePath := filepath.ToSlash(getEnv("CACHE_PATH", "cache"))
	cachePathAbs, err := filepath.Abs(cachePath)
	if err != nil {
		logger.Error("Failed creating absolute path for cache directory", "error", err)
		cachePathAbs = cachePath
	}
	cfg.CachePath = cachePathAbs
	cfg.CacheMaxAge = time.Duration(getEnvInt("CACHE_MAX_AGE", 24)) * time.Hour
	cfg.PruneInterval = getEnvInt("CACHE_PRUNE_INTERVAL", 30)
	cfg.RecentLimit = getEnvInt("RECENT_LIMIT", 20)

	cfg.InitialDocument = getEnv("INITIAL_DOCUMENT", "")

	// Frontend configuration
	cfg.ServerAPIURL = getEnv("SERVER_API_URL", "")
	cfg.MobileImageWidth = getEnvInt("MOBILE_IMAGE_WIDTH", 1080)

	return cfg
}

// SetupFrontend loads configuration for frontend-only server
func SetupFrontend() (FrontEndConfig, *slog.Logger) {
	loadEnvFiles("frontend.env")

	logger := SetupLogging()
	Logger = logger

	frontendConfig := FrontEndConfig{}
	frontendConfig.ServerAPIURL = getEnv("SERVER_API_URL", "http://localhost:8000")
	frontendConfig.MobileImageWidth = getEnvInt("MOBILE_IMAGE_WIDTH", 1080)

	logger.Info("Frontend configuration loaded", "apiURL", frontendConfig.ServerAPIURL)

	return frontendConfig, logger
}

// ParseLevel maps LOG_LEVEL values onto slog levels, defaulting to debug
func ParseLevel(logLevel string) slog.Level {
	switch logLevel {
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}

// SetupLogging configures the application logger
func SetupLogging() *slog.Logger {
	level := ParseLevel(getEnv("LOG_LEVEL", "debug"))
	handlerOptions := &slog.HandlerOptions{Level: level}

	logOutput := getEnv("LOG_OUTPUT", "file")
	var logWriter io.Writer

	if logOutput == "stdout" {
		logWriter = os.Stdout
	} else {
		logWriter = openLogFile(getEnv("LOG_FILE", "pdfreader.log"))
	}

	handler := slog.NewTextHandler(logWriter, handlerOptions)
	return slog.New(handler)
}

// openLogFile opens the log file for appending, falling back to stdout
func openLogFile(name string) io.Writer {
	logPath, err := filepath.Abs(filepath.ToSlash(name))
	if err != nil {
		fmt.Printf("Error creating log file path: %v\n", err)
		return os.Stdout
	}
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		fmt.Printf("Failed to open log file: %v\n", err)
		return os.Stdout
	}
	return logFile
}

// EnsureDirectory creates dir if needed and checks that it is a directory
func EnsureDirectory(dir string, logger *slog.Logger) error {
	info, err := os.Stat(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("Error checking directory", "path", dir, "error", err)
			return err
		}
		logger.Info("Creating directory", "path", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Error("Failed to create directory", "path", dir, "error", err)
			return err
		}
		return nil
	}
	if !info.IsDir() {
		logger.Error("Path exists but is not a directory", "path", dir)
		return fmt.Errorf("path is not a directory: %s", dir)
	}
	logger.Debug("Directory exists", "path", dir)
	return nil
}
