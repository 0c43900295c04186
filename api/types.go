package api

import (
	"context"

	"taskboard-api/domain"
)

// Storage is the board and task store used by the handlers.
type Storage interface {
	ListBoards(ctx context.Context) ([]domain.BoardSummary, error)
	GetBoard(ctx context.Context, boardID string) (domain.BoardView, error)
	CreateBoard(ctx context.Context, in domain.BoardInput) (domain.BoardView, error)
	UpdateBoard(ctx context.Context, boardID string, in domain.BoardInput) (domain.BoardView, error)
	DeleteBoard(ctx context.Context, boardID string) (domain.ExpandedBoard, error)
	DeleteAll(ctx context.Context) ([]domain.ExpandedBoard, error)

	ListTasks(ctx context.Context, boardID string, sortBy *string) ([]domain.TaskView, error)
	GetTask(ctx context.Context, boardID, taskID string) (domain.TaskView, error)
	CreateTask(ctx context.Context, boardID string, in domain.TaskInput) (domain.TaskView, error)
	DeleteTask(ctx context.Context, boardID, taskID string) (domain.TaskView, error)
	PatchTask(ctx context.Context, boardID, taskID string, p domain.TaskPatch) (domain.TaskView, error)
}

// Publisher receives change events after a mutation has been committed.
type Publisher interface {
	Publish(ev domain.Event)
}

// Sink is a destination the outbox delivers change events to.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, ev domain.Event) error
}

// immediateSink is a Sink whose Deliver never blocks. The outbox calls it
// directly from Publish, so it observes events in publish order.
type immediateSink interface {
	Sink
	Immediate() bool
}
