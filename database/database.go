package database

import (
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
)

// Logger is global since we will need it everywhere
var Logger *slog.Logger = slog.Default()

// ErrNotFound is returned when a recent document does not exist
var ErrNotFound = errors.New("recent document not found")

// RecentDocument is one entry of the reading history
type RecentDocument struct {
	ID        ulid.ULID `json:"id"`
	Name      string    `json:"name"`  // file name the document arrived with
	Title     string    `json:"title"` // title from the PDF metadata, may be empty
	Path      string    `json:"path"`  // local path the document can be reopened from
	PageCount int       `json:"pageCount"`
	LastPage  int       `json:"lastPage"` // 0-based page the reader was on
	OpenedAt  time.Time `json:"openedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DisplayName prefers the PDF title over the file name
func (d RecentDocument) DisplayName() string {
	if d.Title != "" {
		return d.Title
	}
	return d.Name
}

// Repository defines database operations
type Repository interface {
	Close() error
	// SaveRecentDocument inserts or updates the entry for doc.Path and sets doc.ID
	SaveRecentDocument(doc *RecentDocument) error
	UpdateLastPage(id ulid.ULID, page int) error
	GetRecentDocuments(limit int) ([]RecentDocument, error)
	GetRecentDocument(id ulid.ULID) (*RecentDocument, error)
	GetRecentDocumentByPath(path string) (*RecentDocument, error)
	DeleteRecentDocument(id ulid.ULID) error
	// PruneRecentDocuments keeps the newest keep entries and returns how many were removed
	PruneRecentDocuments(keep int) (int, error)
	// Type names the database flavour for the about page
	Type() string
}

// RecordOpen stores that a document was just opened. An existing entry for the
// same path keeps its ID.
func RecordOpen(db Repository, name, title, path string, pageCount int) (*RecentDocument, error) {
	now := time.Now().UTC()
	doc := &RecentDocument{
		ID:        ulid.Make(),
		Name:      name,
		Title:     title,
		Path:      path,
		PageCount: pageCount,
		OpenedAt:  now,
		UpdatedAt: now,
	}
	if err := db.SaveRecentDocument(doc); err != nil {
		Logger.Error("Unable to record recent document", "path", path, "error", err)
		return nil, err
	}
	return doc, nil
}
