package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notevault-server/internal/apperror"
	"notevault-server/internal/domain"
	"notevault-server/internal/repository"
	"notevault-server/pkg/hash"
)

// NoteService orchestrates note CRUD, version history and protection rules.
// Every mutation snapshots the pre-mutation content before applying the
// change, and announces itself to the notifier after the store commits.
type NoteService struct {
	repo     repository.NoteRepository
	notifier ChangeNotifier
	logger   *slog.Logger
}

func NewNoteService(repo repository.NoteRepository, notifier ChangeNotifier, logger *slog.Logger) *NoteService {
	return &NoteService{
		repo:     repo,
		notifier: notifier,
		logger:   logger,
	}
}

func (s *NoteService) Create(ctx context.Context, userID int64, req *domain.CreateNoteRequest) (*domain.NoteResponse, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperror.Validation("title", "title is required")
	}
	if len(title) > domain.MaxNoteTitleLength {
		return nil, apperror.Validation("title",
			fmt.Sprintf("title must be %d characters or less", domain.MaxNoteTitleLength))
	}
	if req.Description == "" {
		return nil, apperror.Validation("description", "description is required")
	}

	note := &domain.Note{
		UserID:      userID,
		Title:       title,
		Description: req.Description,
		IsProtected: req.IsProtected,
	}

	if req.IsProtected {
		if req.Password == "" {
			return nil, apperror.Validation("password", "password is required for a protected note")
		}
		hashedPassword, err := hash.Hash(req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash note password: %w", err)
		}
		note.PasswordHash = hashedPassword
	}

	// The store seeds the initial version alongside the note row.
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, err
	}

	s.logger.Info("note created",
		slog.Int64("note_id", note.ID),
		slog.Int64("user_id", userID),
	)
	s.publish(domain.ActionCreate, note, nil)

	return domain.NewNoteResponse(note, true), nil
}

// Get returns a single note. Content of a protected note is withheld from
// everyone but the owner; non-owners receive the locked shape and must
// unlock to read the description.
func (s *NoteService) Get(ctx context.Context, callerID, noteID int64) (*domain.NoteResponse, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	withContent := note.UserID == callerID || !note.IsProtected
	return domain.NewNoteResponse(note, withContent), nil
}

func (s *NoteService) List(ctx context.Context, userID int64) ([]*domain.NoteResponse, error) {
	notes, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	responses := make([]*domain.NoteResponse, 0, len(notes))
	for _, note := range notes {
		responses = append(responses, domain.NewNoteResponse(note, true))
	}

	return responses, nil
}

func (s *NoteService) Update(ctx context.Context, callerID, noteID int64, req *domain.UpdateNoteRequest) (*domain.NoteResponse, error) {
	note, err := s.ownedNote(ctx, callerID, noteID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperror.Validation("title", "title must not be empty")
		}
		if len(title) > domain.MaxNoteTitleLength {
			return nil, apperror.Validation("title",
				fmt.Sprintf("title must be %d characters or less", domain.MaxNoteTitleLength))
		}
		*req.Title = title
	}
	if req.Description != nil && *req.Description == "" {
		return nil, apperror.Validation("description", "description must not be empty")
	}

	protected := note.IsProtected
	if req.IsProtected != nil {
		protected = *req.IsProtected
	}

	passwordHash := note.PasswordHash
	switch {
	case !protected:
		// Dropping protection drops the password with it.
		passwordHash = ""
	case req.Password != nil && *req.Password != "":
		hashed, err := hash.Hash(*req.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to hash note password: %w", err)
		}
		passwordHash = hashed
	case !note.IsProtected:
		// Turning protection on for the first time needs a password; an
		// already protected note keeps its stored hash.
		return nil, apperror.Validation("password", "password is required to protect a note")
	}

	// Snapshot the pre-patch content; the store writes it and the patched
	// row in one transaction.
	snapshot := &domain.NoteVersion{
		Title:       note.Title,
		Description: note.Description,
	}

	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Description != nil {
		note.Description = *req.Description
	}
	note.IsProtected = protected
	note.PasswordHash = passwordHash

	if err := s.repo.UpdateWithSnapshot(ctx, note, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("note updated",
		slog.Int64("note_id", note.ID),
		slog.Int64("user_id", callerID),
	)
	s.publish(domain.ActionUpdate, note, nil)

	return domain.NewNoteResponse(note, true), nil
}

func (s *NoteService) Delete(ctx context.Context, callerID, noteID int64) error {
	note, err := s.ownedNote(ctx, callerID, noteID)
	if err != nil {
		return err
	}

	// Versions go with the note, the store cascades the delete.
	if err := s.repo.Delete(ctx, note.ID); err != nil {
		return err
	}

	s.logger.Info("note deleted",
		slog.Int64("note_id", note.ID),
		slog.Int64("user_id", callerID),
	)
	s.publish(domain.ActionDelete, note, nil)

	return nil
}

// ListVersions returns the history of a note, newest first, headed by a
// synthetic entry for the live content. Non-owners never see a protected
// note's history.
func (s *NoteService) ListVersions(ctx context.Context, callerID, noteID int64) ([]domain.VersionEntry, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if note.IsProtected && note.UserID != callerID {
		return nil, apperror.Forbidden("unlock required")
	}

	versions, err := s.repo.ListVersions(ctx, noteID)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.VersionEntry, 0, len(versions)+1)
	entries = append(entries, domain.CurrentEntry(note))
	for _, v := range versions {
		entries = append(entries, domain.PersistedEntry(v))
	}

	return entries, nil
}

// Revert restores the note's title and description from a persisted version.
// The pre-revert content is snapshotted first, so a revert is itself
// revertible. Protection settings are not touched.
func (s *NoteService) Revert(ctx context.Context, callerID, noteID, versionID int64) (*domain.NoteResponse, error) {
	note, err := s.ownedNote(ctx, callerID, noteID)
	if err != nil {
		return nil, err
	}

	version, err := s.repo.FindVersion(ctx, noteID, versionID)
	if err != nil {
		return nil, err
	}

	snapshot := &domain.NoteVersion{
		Title:       note.Title,
		Description: note.Description,
	}

	note.Title = version.Title
	note.Description = version.Description

	if err := s.repo.UpdateWithSnapshot(ctx, note, snapshot); err != nil {
		return nil, err
	}

	s.logger.Info("note reverted",
		slog.Int64("note_id", note.ID),
		slog.Int64("version_id", versionID),
		slog.Int64("user_id", callerID),
	)
	s.publish(domain.ActionRevert, note, &versionID)

	return domain.NewNoteResponse(note, true), nil
}

// Unlock verifies the note password and returns the full content. This is
// the only path by which a non-owner reads a protected description; nothing
// is remembered between requests.
func (s *NoteService) Unlock(ctx context.Context, noteID int64, password string) (*domain.NoteResponse, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if !note.IsProtected {
		return nil, apperror.Validation("password", "note is not protected")
	}

	if err := hash.Compare(note.PasswordHash, password); err != nil {
		return nil, apperror.Unauthorized("incorrect note password")
	}

	return domain.NewNoteResponse(note, true), nil
}

// ownedNote loads the note and enforces ownership. Existence is checked
// first: a missing note is not found, never forbidden.
func (s *NoteService) ownedNote(ctx context.Context, callerID, noteID int64) (*domain.Note, error) {
	note, err := s.repo.FindByID(ctx, noteID)
	if err != nil {
		return nil, err
	}

	if note.UserID != callerID {
		return nil, apperror.Forbidden("note does not belong to caller")
	}

	return note, nil
}

func (s *NoteService) publish(action domain.ChangeAction, note *domain.Note, versionID *int64) {
	if s.notifier == nil {
		return
	}

	event := &domain.ChangeEvent{
		Action:    action,
		NoteID:    note.ID,
		UserID:    note.UserID,
		Title:     note.Title,
		Timestamp: time.Now().UTC(),
		VersionID: versionID,
	}

	if err := s.notifier.PublishChange(event); err != nil {
		s.logger.Warn("failed to publish change event",
			slog.String("action", string(action)),
			slog.Int64("note_id", note.ID),
			slog.String("error", err.Error()),
		)
	}
}
