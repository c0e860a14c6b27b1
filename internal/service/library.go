package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nookapp/nook-server/internal/domain"
	domainerrors "github.com/nookapp/nook-server/internal/errors"
	"github.com/nookapp/nook-server/internal/id"
	"github.com/nookapp/nook-server/internal/search"
	"github.com/nookapp/nook-server/internal/store"
	"github.com/nookapp/nook-server/internal/validation"
)

// LibraryService manages a user's shelf: adding books, tracking
// progress, and searching. Every entry is mirrored into the shelf
// search index; index failures are logged, never fatal, since the
// store remains the source of truth.
type LibraryService struct {
	store    store.Store
	index    *search.ShelfIndex
	validate *validation.Validator
	logger   *slog.Logger
}

// NewLibraryService creates a new library service.
func NewLibraryService(st store.Store, index *search.ShelfIndex, logger *slog.Logger) *LibraryService {
	return &LibraryService{
		store:    st,
		index:    index,
		validate: validation.New(),
		logger:   logger,
	}
}

// AddEntryRequest snapshots catalog metadata onto a new shelf entry.
type AddEntryRequest struct {
	BookID   string   `json:"book_id" validate:"required"`
	Title    string   `json:"title" validate:"required,max=500"`
	Authors  []string `json:"authors"`
	CoverURL string   `json:"cover_url" validate:"omitempty,max=1000"`
	Status   string   `json:"status" validate:"required,oneof=reading read want-to-read abandoned"`
}

// UpdateEntryRequest contains a partial shelf entry edit.
type UpdateEntryRequest struct {
	Status          *string `json:"status" validate:"omitempty,oneof=reading read want-to-read abandoned"`
	ProgressPercent *int    `json:"progress_percent" validate:"omitempty,gte=0,lte=100"`
	Rating          *int    `json:"rating" validate:"omitempty,gte=1,lte=5"`
	Notes           *string `json:"notes" validate:"omitempty,max=2000"`
}

// Add puts a book on the user's shelf.
func (s *LibraryService) Add(ctx context.Context, userID string, req AddEntryRequest) (*domain.LibraryEntry, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	entryID, err := id.Generate("entry")
	if err != nil {
		return nil, fmt.Errorf("generate entry ID: %w", err)
	}

	entry := &domain.LibraryEntry{
		ID:       entryID,
		UserID:   userID,
		BookID:   req.BookID,
		Title:    strings.TrimSpace(req.Title),
		Authors:  req.Authors,
		CoverURL: req.CoverURL,
		Status:   domain.ReadingStatus(req.Status),
	}
	now := time.Now()
	entry.AddedAt = now
	entry.UpdatedAt = now

	if err := s.store.CreateLibraryEntry(ctx, entry); err != nil {
		if domainerrors.Is(err, store.ErrAlreadyExists) {
			return nil, domainerrors.AlreadyExists("book is already on your shelf")
		}
		return nil, fmt.Errorf("create entry: %w", err)
	}

	s.indexEntry(entry)

	s.logger.Info("shelf entry added",
		"user_id", userID,
		"entry_id", entry.ID,
		"book_id", entry.BookID,
	)
	return entry, nil
}

// List returns the user's shelf, newest first, optionally filtered by status.
func (s *LibraryService) List(ctx context.Context, userID, status string) ([]*domain.LibraryEntry, error) {
	if status != "" && !domain.ReadingStatus(status).Valid() {
		return nil, domainerrors.Validationf("unknown status %q", status)
	}

	entries, err := s.store.ListLibraryEntries(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	if status == "" {
		return entries, nil
	}

	filtered := make([]*domain.LibraryEntry, 0, len(entries))
	for _, e := range entries {
		if string(e.Status) == status {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Update applies a partial edit to a shelf entry.
// Entries belonging to other users surface as NotFound.
func (s *LibraryService) Update(ctx context.Context, userID, entryID string, req UpdateEntryRequest) (*domain.LibraryEntry, error) {
	if err := s.validate.Validate(req); err != nil {
		return nil, err
	}

	entry, err := s.getOwned(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil {
		entry.Status = domain.ReadingStatus(*req.Status)
	}
	if req.ProgressPercent != nil {
		entry.SetProgress(*req.ProgressPercent)
	}
	if req.Rating != nil {
		entry.Rating = req.Rating
	}
	if req.Notes != nil {
		entry.Notes = *req.Notes
	}
	entry.Touch()

	if err := s.store.UpdateLibraryEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("update entry: %w", err)
	}

	s.indexEntry(entry)
	return entry, nil
}

// Remove takes a book off the user's shelf.
func (s *LibraryService) Remove(ctx context.Context, userID, entryID string) error {
	entry, err := s.getOwned(ctx, userID, entryID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteLibraryEntry(ctx, entry.ID); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	if err := s.index.DeleteEntry(entry.ID); err != nil {
		s.logger.Warn("failed to remove entry from shelf index",
			"entry_id", entry.ID,
			"error", err,
		)
	}

	s.logger.Info("shelf entry removed",
		"user_id", userID,
		"entry_id", entry.ID,
	)
	return nil
}

// Search runs a full-text search over the user's shelf.
func (s *LibraryService) Search(ctx context.Context, userID, query string, statuses []string, limit, offset int) (*search.Result, error) {
	params := search.DefaultParams(userID)
	params.Query = strings.TrimSpace(query)
	params.Statuses = statuses
	if limit > 0 {
		params.Limit = limit
	}
	if offset > 0 {
		params.Offset = offset
	}

	result, err := s.index.Search(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("shelf search: %w", err)
	}
	return result, nil
}

// ReindexAll rebuilds the shelf index from the store for one user.
// Used after an index rebuild on startup.
func (s *LibraryService) ReindexAll(ctx context.Context, userID string) error {
	entries, err := s.store.ListLibraryEntries(ctx, userID)
	if err != nil {
		return fmt.Errorf("list entries: %w", err)
	}

	docs := make([]*search.ShelfDocument, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, search.EntryToDocument(e))
	}
	return s.index.IndexEntries(docs)
}

// getOwned loads an entry and checks ownership.
func (s *LibraryService) getOwned(ctx context.Context, userID, entryID string) (*domain.LibraryEntry, error) {
	entry, err := s.store.GetLibraryEntry(ctx, entryID)
	if err != nil {
		if domainerrors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("shelf entry not found")
		}
		return nil, fmt.Errorf("get entry: %w", err)
	}
	if entry.UserID != userID {
		// Don't reveal that the entry exists
		return nil, domainerrors.NotFound("shelf entry not found")
	}
	return entry, nil
}

// indexEntry mirrors an entry into the search index.
func (s *LibraryService) indexEntry(entry *domain.LibraryEntry) {
	if err := s.index.IndexEntry(search.EntryToDocument(entry)); err != nil {
		s.logger.Warn("failed to index shelf entry",
			"entry_id", entry.ID,
			"error", err,
		)
	}
}
