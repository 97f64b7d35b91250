package domain

import "time"

type ChangeAction string

const (
	ActionCreate ChangeAction = "create"
	ActionUpdate ChangeAction = "update"
	ActionDelete ChangeAction = "delete"
	ActionRevert ChangeAction = "revert"
)

// ChangeEvent is the advisory record broadcast to subscribers after a note
// mutation commits. Delivery is best-effort; nothing in the request path
// depends on it.
type ChangeEvent struct {
	Action    ChangeAction `json:"action"`
	NoteID    int64        `json:"note_id"`
	UserID    int64        `json:"user_id"`
	Title     string       `json:"title"`
	Timestamp time.Time    `json:"timestamp"`
	VersionID *int64       `json:"version_id,omitempty"` // set for revert only
}
