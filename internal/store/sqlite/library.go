package sqlite

import (
	"context"
	"database/sql"
	"encoding/json/v2"
	"errors"
	"fmt"
	"strings"

	"github.com/nookapp/nook-server/internal/domain"
	"github.com/nookapp/nook-server/internal/store"
)

// libraryColumns must match the scan order in scanLibraryEntry.
const libraryColumns = `id, user_id, book_id, title, authors, cover_url,
	status, progress_percent, rating, notes, added_at, updated_at`

func scanLibraryEntry(scanner interface{ Scan(dest ...any) error }) (*domain.LibraryEntry, error) {
	var e domain.LibraryEntry

	var (
		authorsJSON string
		status      string
		progress    sql.NullInt64
		rating      sql.NullInt64
		addedAt     string
		updatedAt   string
	)

	err := scanner.Scan(
		&e.ID,
		&e.UserID,
		&e.BookID,
		&e.Title,
		&authorsJSON,
		&e.CoverURL,
		&status,
		&progress,
		&rating,
		&e.Notes,
		&addedAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(authorsJSON), &e.Authors); err != nil {
		return nil, fmt.Errorf("parse authors: %w", err)
	}
	e.Status = domain.ReadingStatus(status)
	e.ProgressPercent = intPtr(progress)
	e.Rating = intPtr(rating)

	e.AddedAt, err = parseTime(addedAt)
	if err != nil {
		return nil, err
	}
	e.UpdatedAt, err = parseTime(updatedAt)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// CreateLibraryEntry adds a book to a user's shelf.
// Returns store.ErrAlreadyExists if the book is already shelved.
func (s *Store) CreateLibraryEntry(ctx context.Context, entry *domain.LibraryEntry) error {
	authorsJSON, err := json.Marshal(entry.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO library_entries (
			id, user_id, book_id, title, authors, cover_url,
			status, progress_percent, rating, notes, added_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.UserID,
		entry.BookID,
		entry.Title,
		string(authorsJSON),
		entry.CoverURL,
		string(entry.Status),
		nullInt(entry.ProgressPercent),
		nullInt(entry.Rating),
		entry.Notes,
		formatTime(entry.AddedAt),
		formatTime(entry.UpdatedAt),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return store.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// GetLibraryEntry retrieves a shelf entry by ID.
func (s *Store) GetLibraryEntry(ctx context.Context, id string) (*domain.LibraryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM library_entries WHERE id = ?`, id)

	e, err := scanLibraryEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// GetLibraryEntryByBook retrieves a user's entry for a catalog book, if shelved.
func (s *Store) GetLibraryEntryByBook(ctx context.Context, userID, bookID string) (*domain.LibraryEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+libraryColumns+` FROM library_entries WHERE user_id = ? AND book_id = ?`,
		userID, bookID)

	e, err := scanLibraryEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListLibraryEntries returns a user's shelf, most recently added first.
func (s *Store) ListLibraryEntries(ctx context.Context, userID string) ([]*domain.LibraryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+libraryColumns+` FROM library_entries WHERE user_id = ? ORDER BY added_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LibraryEntry
	for rows.Next() {
		e, err := scanLibraryEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// UpdateLibraryEntry performs a full row update on a shelf entry.
func (s *Store) UpdateLibraryEntry(ctx context.Context, entry *domain.LibraryEntry) error {
	authorsJSON, err := json.Marshal(entry.Authors)
	if err != nil {
		return fmt.Errorf("marshal authors: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE library_entries SET
			title = ?,
			authors = ?,
			cover_url = ?,
			status = ?,
			progress_percent = ?,
			rating = ?,
			notes = ?,
			updated_at = ?
		WHERE id = ?`,
		entry.Title,
		string(authorsJSON),
		entry.CoverURL,
		string(entry.Status),
		nullInt(entry.ProgressPercent),
		nullInt(entry.Rating),
		entry.Notes,
		formatTime(entry.UpdatedAt),
		entry.ID,
	)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteLibraryEntry removes a shelf entry.
func (s *Store) DeleteLibraryEntry(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM library_entries WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
