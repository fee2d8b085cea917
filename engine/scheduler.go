package engine

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// InitializeSchedules starts the cache maintenance cron job and runs it once straight away
func (serverHandler *ServerHandler) InitializeSchedules() *cron.Cron {
	Logger.Info("Running cache maintenance at startup")
	go serverHandler.maintenanceJobFunc()

	interval := serverHandler.Config.PruneInterval
	if interval <= 0 {
		interval = 30
	}

	c := cron.New()
	var maintenanceJob cron.Job
	maintenanceJob = cron.FuncJob(serverHandler.maintenanceJobFunc)
	maintenanceJob = cron.NewChain(cron.SkipIfStillRunning(cron.DefaultLogger)).Then(maintenanceJob) //ensure we don't kick off another if old one is still running
	if _, err := c.AddJob(fmt.Sprintf("@every %dm", interval), maintenanceJob); err != nil {
		Logger.Error("Unable to schedule cache maintenance", "error", err)
	}
	Logger.Info("Adding cache maintenance scheduler", "interval_minutes", interval)
	c.Start()
	return c
}

func (serverHandler *ServerHandler) maintenanceJobFunc() {
	// Add panic recovery to prevent entire application crash
	defer func() {
		if r := recover(); r != nil {
			Logger.Error("Panic recovered in cache maintenance job", "panic", r)
		}
	}()

	removed, err := serverHandler.PruneCache(time.Now())
	if err != nil {
		Logger.Error("Cache prune failed", "error", err)
	}
	trimmed, err := serverHandler.PruneRecent()
	if err != nil {
		Logger.Error("Recent documents prune failed", "error", err)
	}
	Logger.Info("Cache maintenance finished", "cacheRemoved", removed, "recentRemoved", trimmed)
}

// PruneCache deletes uploads older than CacheMaxAge, never the open document.
// Recent entries pointing at a deleted upload are dropped too.
func (serverHandler *ServerHandler) PruneCache(now time.Time) (int, error) {
	cachePath := serverHandler.Config.CachePath
	if cachePath == "" || serverHandler.Config.CacheMaxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(cachePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	cutoff := now.Add(-serverHandler.Config.CacheMaxAge)
	openPath := serverHandler.currentPath()
	removed := 0
	for _, entry := range entries {
		path := filepath.Join(cachePath, entry.Name())
		info, err := entry.Info()
		if err != nil {
			Logger.Warn("Unable to get information for cache entry", "path", path, "error", err)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if openPath != "" && (openPath == path || filepath.Dir(openPath) == path) {
			Logger.Debug("Keeping cache entry of the open document", "path", path)
			continue
		}

		var files []string
		if entry.IsDir() {
			files, _ = filepath.Glob(filepath.Join(path, "*"))
		} else {
			files = []string{path}
		}
		if err := os.RemoveAll(path); err != nil {
			Logger.Warn("Unable to remove cache entry", "path", path, "error", err)
			continue
		}
		removed++
		serverHandler.dropRecentFor(files)
	}
	return removed, nil
}

func (serverHandler *ServerHandler) dropRecentFor(files []string) {
	if serverHandler.DB == nil {
		return
	}
	for _, file := range files {
		doc, err := serverHandler.DB.GetRecentDocumentByPath(file)
		if err != nil {
			continue
		}
		if err := serverHandler.DB.DeleteRecentDocument(doc.ID); err != nil {
			Logger.Warn("Unable to drop recent document for pruned upload", "path", file, "error", err)
		}
	}
}

// PruneRecent trims the recent documents list to RecentLimit entries
func (serverHandler *ServerHandler) PruneRecent() (int, error) {
	if serverHandler.DB == nil || serverHandler.Config.RecentLimit <= 0 {
		return 0, nil
	}
	return serverHandler.DB.PruneRecentDocuments(serverHandler.Config.RecentLimit)
}
