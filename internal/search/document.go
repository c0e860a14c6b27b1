// Package search provides full-text search over a user's shelf using
// Bleve. Entries are indexed with their catalog metadata snapshot so
// searches match on title, author, and personal notes without touching
// the catalog API.
package search

import (
	"strings"

	"github.com/nookapp/nook-server/internal/domain"
)

// ShelfDocument is the document structure for the Bleve index.
//
// Design note: the user ID is indexed as an exact-match term so every
// query can be scoped to a single shelf. A shared index with a term
// filter is much cheaper than one index per user.
type ShelfDocument struct {
	// Identity
	ID     string `json:"id"`      // Library entry ID (entry_xxx)
	UserID string `json:"user_id"` // Owner, exact-match filter

	// Searchable text
	Title   string `json:"title"`
	Authors string `json:"authors,omitempty"` // Joined for single-field search
	Notes   string `json:"notes,omitempty"`

	// Exact-match fields
	Status string `json:"status"`

	// Timestamps for sorting (Unix millis)
	AddedAt   int64 `json:"added_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *ShelfDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"user_id":    d.UserID,
		"title":      d.Title,
		"status":     d.Status,
		"added_at":   d.AddedAt,
		"updated_at": d.UpdatedAt,
	}

	if d.Authors != "" {
		m["authors"] = d.Authors
	}
	if d.Notes != "" {
		m["notes"] = d.Notes
	}

	return m
}

// EntryToDocument converts a library entry to its search document.
func EntryToDocument(e *domain.LibraryEntry) *ShelfDocument {
	return &ShelfDocument{
		ID:        e.ID,
		UserID:    e.UserID,
		Title:     e.Title,
		Authors:   strings.Join(e.Authors, ", "),
		Notes:     e.Notes,
		Status:    string(e.Status),
		AddedAt:   e.AddedAt.UnixMilli(),
		UpdatedAt: e.UpdatedAt.UnixMilli(),
	}
}
