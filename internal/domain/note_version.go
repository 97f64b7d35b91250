package domain

import "time"

// NoteVersion is an immutable snapshot of a note's title and description,
// taken just before a mutating edit or revert is applied. Versions are
// append-only and are removed only when their note is deleted.
type NoteVersion struct {
	ID          int64     `json:"id"`
	NoteID      int64     `json:"note_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// VersionEntry is a transient view over the version history. The first entry
// of a listing is the live note itself: it carries a nil ID and Current=true
// and is never persisted.
type VersionEntry struct {
	ID          *int64    `json:"id"`
	Current     bool      `json:"current"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// CurrentEntry builds the synthetic head entry from the live note. Its
// timestamp is the note's last update time.
func CurrentEntry(note *Note) VersionEntry {
	return VersionEntry{
		Current:     true,
		Title:       note.Title,
		Description: note.Description,
		CreatedAt:   note.UpdatedAt,
	}
}

// PersistedEntry builds an entry from a stored snapshot.
func PersistedEntry(v *NoteVersion) VersionEntry {
	id := v.ID
	return VersionEntry{
		ID:          &id,
		Title:       v.Title,
		Description: v.Description,
		CreatedAt:   v.CreatedAt,
	}
}
