package domain

import "github.com/bytedance/sonic"

const (
	EntityBoard = "board"
	EntityTask  = "task"
)

const (
	BoardCreated  = "board-created"
	BoardUpdated  = "board-updated"
	BoardDeleted  = "board-deleted"
	BoardsCleared = "boards-cleared"
	TaskCreated   = "task-created"
	TaskUpdated   = "task-updated"
	TaskMoved     = "task-moved"
	TaskDeleted   = "task-deleted"
)

// Event describes a committed change to a board or task. Data holds the
// projection of the affected record after the change, or before it for
// deletions.
type Event struct {
	ID         string                 `json:"id"`
	EntityType string                 `json:"entityType"`
	EntityID   string                 `json:"entityId,omitempty"`
	Type       string                 `json:"type"`
	Data       sonic.NoCopyRawMessage `json:"data,omitempty"`
	Timestamp  int64                  `json:"timestamp"`
}
