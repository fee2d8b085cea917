package engine

import (
	"github.com/drummonds/pdfreader/config"
)

// StartupChecks performs all the checks to make sure everything works
func (serverHandler *ServerHandler) StartupChecks() error {
	if err := cacheDirectoryChecks(serverHandler.Config); err != nil {
		return err
	}
	rendererChecks(serverHandler.Config)
	serverHandler.initialDocumentCheck()
	return nil
}

// cacheDirectoryChecks ensures the upload cache exists
func cacheDirectoryChecks(viewerConfig config.ViewerConfig) error {
	if viewerConfig.CachePath == "" {
		Logger.Warn("Cache path not configured, uploads will fail")
		return nil
	}
	return config.EnsureDirectory(viewerConfig.CachePath, Logger)
}

func rendererChecks(viewerConfig config.ViewerConfig) {
	switch viewerConfig.Renderer {
	case "remote":
		Logger.Info("Pages are rendered by the remote render service", "url", viewerConfig.RenderServiceURL)
	case "pdfium":
		Logger.Info("Pages are rendered by PDFium (WebAssembly)")
	default:
		Logger.Info("Pages are rendered by MuPDF", "renderer", viewerConfig.Renderer)
	}
	Logger.Info("Viewer ready", "variant", viewerConfig.Variant, "zoom", viewerConfig.ZoomFactor)
}

// initialDocumentCheck opens INITIAL_DOCUMENT if one is configured
func (serverHandler *ServerHandler) initialDocumentCheck() {
	path := serverHandler.Config.InitialDocument
	if path == "" {
		return
	}
	if _, err := serverHandler.OpenFile(path, "", 0); err != nil {
		Logger.Warn("Initial document could not be opened", "path", path, "error", err)
	}
}
