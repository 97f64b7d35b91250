package domain

import "time"

const MaxNoteTitleLength = 255

type Note struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	IsProtected  bool      `json:"is_protected"`
	PasswordHash string    `json:"-"` // set iff IsProtected, never serialized
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateNoteRequest struct {
	Title       string `json:"title" validate:"required,max=255"`
	Description string `json:"description" validate:"required"`
	IsProtected bool   `json:"is_protected"`
	Password    string `json:"password"`
}

// UpdateNoteRequest carries a partial patch. Pointer fields distinguish
// "omitted, keep stored value" from an explicit new value.
type UpdateNoteRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	IsProtected *bool   `json:"is_protected"`
	Password    *string `json:"password"`
}

type UnlockNoteRequest struct {
	Password string `json:"password" validate:"required"`
}

type RevertNoteRequest struct {
	VersionID int64 `json:"version_id" validate:"required"`
}

// NoteResponse is the wire shape for note reads. Description is nil when a
// protected note is read by a non-owner who has not unlocked it, in which
// case NeedsPassword is true.
type NoteResponse struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	Title         string    `json:"title"`
	Description   *string   `json:"description"`
	IsProtected   bool      `json:"is_protected"`
	NeedsPassword bool      `json:"needs_password"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewNoteResponse builds a NoteResponse from a note. withContent controls
// whether the description is included or replaced by the locked sentinel.
func NewNoteResponse(note *Note, withContent bool) *NoteResponse {
	resp := &NoteResponse{
		ID:          note.ID,
		UserID:      note.UserID,
		Title:       note.Title,
		IsProtected: note.IsProtected,
		CreatedAt:   note.CreatedAt,
		UpdatedAt:   note.UpdatedAt,
	}
	if withContent {
		desc := note.Description
		resp.Description = &desc
	} else {
		resp.NeedsPassword = true
	}
	return resp
}
