package database

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/drummonds/pdfreader/config"
	"github.com/oklog/ulid/v2"
)

func newTestRepository(t *testing.T) *BunDB {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	dbFile := filepath.Join(t.TempDir(), "databases", "recent.sqlite")
	db, err := NewRepository(config.ViewerConfig{DatabaseType: "sqlite", DatabaseDbname: dbFile})
	if err != nil {
		t.Fatalf("Failed to set up sqlite database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestBunSQLiteRecentDocuments(t *testing.T) {
	db := newTestRepository(t)
	if db.Type() != "sqlite" {
		t.Errorf("Expected sqlite type, got %s", db.Type())
	}

	t.Run("Record and retrieve", func(t *testing.T) {
		doc, err := RecordOpen(db, "report.pdf", "Quarterly Report", "/cache/report.pdf", 12)
		if err != nil {
			t.Fatalf("Failed to record document: %v", err)
		}
		if doc.ID == (ulid.ULID{}) {
			t.Error("Document ID was not set after save")
		}

		got, err := db.GetRecentDocument(doc.ID)
		if err != nil {
			t.Fatalf("Failed to get document by ID: %v", err)
		}
		if got.PageCount != 12 || got.Title != "Quarterly Report" {
			t.Errorf("Unexpected document %+v", got)
		}
		if got.DisplayName() != "Quarterly Report" {
			t.Errorf("Expected title as display name, got %s", got.DisplayName())
		}

		byPath, err := db.GetRecentDocumentByPath("/cache/report.pdf")
		if err != nil {
			t.Fatalf("Failed to get document by path: %v", err)
		}
		if byPath.ID != doc.ID {
			t.Errorf("Expected ID %s, got %s", doc.ID, byPath.ID)
		}
	})

	t.Run("Reopen keeps ID and last page", func(t *testing.T) {
		first, err := RecordOpen(db, "book.pdf", "", "/cache/book.pdf", 300)
		if err != nil {
			t.Fatalf("Failed to record document: %v", err)
		}
		if err := db.UpdateLastPage(first.ID, 41); err != nil {
			t.Fatalf("Failed to update last page: %v", err)
		}

		again, err := RecordOpen(db, "book.pdf", "", "/cache/book.pdf", 300)
		if err != nil {
			t.Fatalf("Failed to record reopen: %v", err)
		}
		if again.ID != first.ID {
			t.Errorf("Reopen changed ID from %s to %s", first.ID, again.ID)
		}
		if again.LastPage != 41 {
			t.Errorf("Expected last page 41 after reopen, got %d", again.LastPage)
		}
		if again.DisplayName() != "book.pdf" {
			t.Errorf("Expected file name as display name, got %s", again.DisplayName())
		}
	})

	t.Run("Missing documents", func(t *testing.T) {
		missing := ulid.Make()
		if _, err := db.GetRecentDocument(missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
		if err := db.UpdateLastPage(missing, 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound updating missing document, got %v", err)
		}
		if err := db.DeleteRecentDocument(missing); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound deleting missing document, got %v", err)
		}
	})
}

func TestBunSQLiteOrderingAndPrune(t *testing.T) {
	db := newTestRepository(t)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var ids []ulid.ULID
	for i, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		doc := &RecentDocument{
			Name:      name,
			Path:      "/cache/" + name,
			PageCount: i + 1,
			UpdatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := db.SaveRecentDocument(doc); err != nil {
			t.Fatalf("Failed to save %s: %v", name, err)
		}
		ids = append(ids, doc.ID)
	}

	docs, err := db.GetRecentDocuments(0)
	if err != nil {
		t.Fatalf("Failed to list documents: %v", err)
	}
	if len(docs) != 4 {
		t.Fatalf("Expected 4 documents, got %d", len(docs))
	}
	if docs[0].Name != "d.pdf" || docs[3].Name != "a.pdf" {
		t.Errorf("Expected newest first, got %s ... %s", docs[0].Name, docs[3].Name)
	}

	limited, err := db.GetRecentDocuments(2)
	if err != nil {
		t.Fatalf("Failed to list limited documents: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Expected 2 documents with limit, got %d", len(limited))
	}

	removed, err := db.PruneRecentDocuments(2)
	if err != nil {
		t.Fatalf("Failed to prune: %v", err)
	}
	if removed != 2 {
		t.Errorf("Expected 2 removed, got %d", removed)
	}
	if _, err := db.GetRecentDocument(ids[0]); !errors.Is(err, ErrNotFound) {
		t.Errorf("Oldest document should be pruned, got %v", err)
	}
	if _, err := db.GetRecentDocument(ids[3]); err != nil {
		t.Errorf("Newest document should survive prune, got %v", err)
	}

	removed, err = db.PruneRecentDocuments(5)
	if err != nil || removed != 0 {
		t.Errorf("Prune under the limit = %d, %v", removed, err)
	}

	if err := db.DeleteRecentDocument(ids[3]); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	docs, _ = db.GetRecentDocuments(0)
	if len(docs) != 1 || docs[0].ID != ids[2] {
		t.Errorf("Expected only c.pdf left, got %+v", docs)
	}
}

func TestNewRepositoryUnknownType(t *testing.T) {
	if _, err := NewRepository(config.ViewerConfig{DatabaseType: "mongodb"}); err == nil {
		t.Error("Expected error for unknown database type")
	}
}
