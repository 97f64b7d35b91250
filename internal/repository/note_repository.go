package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"notevault-server/internal/apperror"
	"notevault-server/internal/domain"
)

// NoteRepository persists notes together with their version history. The
// snapshot-carrying writes are transactional: either the note row and the
// version row both land, or neither does.
type NoteRepository interface {
	Create(ctx context.Context, note *domain.Note) error
	FindByID(ctx context.Context, id int64) (*domain.Note, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Note, error)
	UpdateWithSnapshot(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error
	Delete(ctx context.Context, id int64) error
	ListVersions(ctx context.Context, noteID int64) ([]*domain.NoteVersion, error)
	FindVersion(ctx context.Context, noteID, versionID int64) (*domain.NoteVersion, error)
}

type noteRepository struct {
	db *sql.DB
}

func NewNoteRepository(db *sql.DB) NoteRepository {
	return &noteRepository{db: db}
}

// Create inserts the note and seeds its history with one snapshot of the
// just-created content, so a version listing is never empty.
func (r *noteRepository) Create(ctx context.Context, note *domain.Note) error {
	now := time.Now().UTC()
	note.CreatedAt = now
	note.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO notes (user_id, title, description, is_protected, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		note.UserID, note.Title, note.Description, note.IsProtected,
		nullableHash(note.PasswordHash), note.CreatedAt, note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	note.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read note id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO note_versions (note_id, title, description, created_at)
		 VALUES (?, ?, ?, ?)`,
		note.ID, note.Title, note.Description, now,
	); err != nil {
		return fmt.Errorf("failed to seed note version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note creation: %w", err)
	}

	return nil
}

func (r *noteRepository) FindByID(ctx context.Context, id int64) (*domain.Note, error) {
	var (
		note domain.Note
		hash sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, title, description, is_protected, password_hash, created_at, updated_at
		 FROM notes WHERE id = ?`, id,
	).Scan(&note.ID, &note.UserID, &note.Title, &note.Description,
		&note.IsProtected, &hash, &note.CreatedAt, &note.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("note", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find note: %w", err)
	}
	note.PasswordHash = hash.String
	return &note, nil
}

func (r *noteRepository) ListByUser(ctx context.Context, userID int64) ([]*domain.Note, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, description, is_protected, password_hash, created_at, updated_at
		 FROM notes WHERE user_id = ? ORDER BY updated_at DESC, id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	var notes []*domain.Note
	for rows.Next() {
		var (
			note domain.Note
			hash sql.NullString
		)
		if err := rows.Scan(&note.ID, &note.UserID, &note.Title, &note.Description,
			&note.IsProtected, &hash, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		note.PasswordHash = hash.String
		notes = append(notes, &note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}

	return notes, nil
}

// UpdateWithSnapshot appends the snapshot to the history and applies the new
// note state in a single transaction. The snapshot must hold the pre-update
// title and description; the caller builds it before patching the note.
func (r *noteRepository) UpdateWithSnapshot(ctx context.Context, note *domain.Note, snapshot *domain.NoteVersion) error {
	now := time.Now().UTC()
	note.UpdatedAt = now
	snapshot.NoteID = note.ID
	snapshot.CreatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO note_versions (note_id, title, description, created_at)
		 VALUES (?, ?, ?, ?)`,
		snapshot.NoteID, snapshot.Title, snapshot.Description, snapshot.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to snapshot note: %w", err)
	}

	snapshot.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read version id: %w", err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE notes SET title = ?, description = ?, is_protected = ?, password_hash = ?, updated_at = ?
		 WHERE id = ?`,
		note.Title, note.Description, note.IsProtected,
		nullableHash(note.PasswordHash), note.UpdatedAt, note.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("note", note.ID)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit note update: %w", err)
	}

	return nil
}

// Delete removes the note; its versions go with it via the cascading foreign
// key.
func (r *noteRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM notes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound("note", id)
	}

	return nil
}

func (r *noteRepository) ListVersions(ctx context.Context, noteID int64) ([]*domain.NoteVersion, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, note_id, title, description, created_at
		 FROM note_versions WHERE note_id = ?
		 ORDER BY created_at DESC, id DESC`, noteID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.NoteVersion
	for rows.Next() {
		var v domain.NoteVersion
		if err := rows.Scan(&v.ID, &v.NoteID, &v.Title, &v.Description, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		versions = append(versions, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate versions: %w", err)
	}

	return versions, nil
}

// FindVersion is scoped to a note: a version id that exists but belongs to a
// different note is reported as not found.
func (r *noteRepository) FindVersion(ctx context.Context, noteID, versionID int64) (*domain.NoteVersion, error) {
	var v domain.NoteVersion
	err := r.db.QueryRowContext(ctx,
		`SELECT id, note_id, title, description, created_at
		 FROM note_versions WHERE id = ? AND note_id = ?`, versionID, noteID,
	).Scan(&v.ID, &v.NoteID, &v.Title, &v.Description, &v.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("note version", versionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find version: %w", err)
	}
	return &v, nil
}

func nullableHash(hash string) sql.NullString {
	return sql.NullString{String: hash, Valid: hash != ""}
}
