package domain

import "time"

// ReadingStatus represents where a book sits on the user's shelf.
type ReadingStatus string

// Shelf statuses.
const (
	StatusReading    ReadingStatus = "reading"
	StatusRead       ReadingStatus = "read"
	StatusWantToRead ReadingStatus = "want-to-read"
	StatusAbandoned  ReadingStatus = "abandoned"
)

// Valid reports whether the status is one of the known shelf states.
func (s ReadingStatus) Valid() bool {
	switch s {
	case StatusReading, StatusRead, StatusWantToRead, StatusAbandoned:
		return true
	}
	return false
}

// LibraryEntry is a book on a user's shelf. Book metadata is a snapshot
// taken from the catalog at add time; the catalog's own ID is kept so
// the entry can be refreshed or deduplicated.
type LibraryEntry struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	BookID string `json:"book_id"` // Catalog volume ID

	// Snapshot of catalog metadata at add time.
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	CoverURL string   `json:"cover_url,omitempty"`

	Status          ReadingStatus `json:"status"`
	ProgressPercent *int          `json:"progress_percent,omitempty"` // 0-100
	Rating          *int          `json:"rating,omitempty"`           // 1-5
	Notes           string        `json:"notes,omitempty"`

	AddedAt   time.Time `json:"added_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the modification timestamp.
func (e *LibraryEntry) Touch() {
	e.UpdatedAt = time.Now()
}

// SetProgress records reading progress, clamped to 0-100.
func (e *LibraryEntry) SetProgress(pct int) {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	e.ProgressPercent = &pct
}

// IsFinished reports whether the entry is in a terminal state.
func (e *LibraryEntry) IsFinished() bool {
	return e.Status == StatusRead || e.Status == StatusAbandoned
}
