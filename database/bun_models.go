package database

import (
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/uptrace/bun"
)

// BunRecentDocument represents the recent_documents table for Bun ORM
type BunRecentDocument struct {
	bun.BaseModel `bun:"table:recent_documents,alias:rd"`

	ID        string    `bun:"id,pk"` // ULID as string
	Name      string    `bun:"name,notnull"`
	Title     string    `bun:"title,notnull,default:''"`
	Path      string    `bun:"path,notnull,unique"`
	PageCount int       `bun:"page_count,notnull,default:0"`
	LastPage  int       `bun:"last_page,notnull,default:0"`
	OpenedAt  time.Time `bun:"opened_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ToRecentDocument converts BunRecentDocument to RecentDocument
func (bd *BunRecentDocument) ToRecentDocument() (*RecentDocument, error) {
	parsedULID, err := ulid.Parse(bd.ID)
	if err != nil {
		return nil, err
	}

	return &RecentDocument{
		ID:        parsedULID,
		Name:      bd.Name,
		Title:     bd.Title,
		Path:      bd.Path,
		PageCount: bd.PageCount,
		LastPage:  bd.LastPage,
		OpenedAt:  bd.OpenedAt,
		UpdatedAt: bd.UpdatedAt,
	}, nil
}

// FromRecentDocument converts RecentDocument to BunRecentDocument
func FromRecentDocument(doc *RecentDocument) *BunRecentDocument {
	return &BunRecentDocument{
		ID:        doc.ID.String(),
		Name:      doc.Name,
		Title:     doc.Title,
		Path:      doc.Path,
		PageCount: doc.PageCount,
		LastPage:  doc.LastPage,
		OpenedAt:  doc.OpenedAt,
		UpdatedAt: doc.UpdatedAt,
	}
}
