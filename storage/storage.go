package storage

import (
	"context"
	"strconv"
	"sync"
	"time"

	"taskboard-api/domain"
)

// Store keeps boards and tasks in memory. Every method runs under a single
// mutex, so the two sides of the board/task relationship always change
// together and id allocation is part of the same critical section.
type Store struct {
	mu          sync.Mutex
	boards      map[string]*domain.Board
	boardOrder  []string
	tasks       map[string]*domain.Task
	nextBoardID int
	nextTaskID  int
	version     uint64
	now         func() time.Time
}

type Option func(*Store)

// WithClock overrides the clock used to stamp dateCreated.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		boards: make(map[string]*domain.Board),
		tasks:  make(map[string]*domain.Task),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Version changes after every successful mutation.
func (s *Store) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

func (s *Store) lookupTask(id string) (*domain.Task, bool) {
	t, ok := s.tasks[id]
	return t, ok
}

func (s *Store) boardExists(id string) bool {
	_, ok := s.boards[id]
	return ok
}

// resolveTask performs the board, task, membership lookup shared by the
// single task operations.
func (s *Store) resolveTask(boardID, taskID string) (*domain.Board, *domain.Task, error) {
	b, ok := s.boards[boardID]
	if !ok {
		return nil, nil, domain.BoardNotFound(boardID)
	}
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, nil, domain.TaskNotFound(taskID)
	}
	if !b.Tasks.Has(taskID) {
		return nil, nil, domain.TaskNotOnBoard(boardID, taskID)
	}
	return b, t, nil
}

func (s *Store) ListBoards(ctx context.Context) ([]domain.BoardSummary, error) {
	boards, _ := s.ListBoardsAt(ctx)
	return boards, nil
}

// ListBoardsAt returns every board in creation order together with the
// store version the listing was taken at.
func (s *Store) ListBoardsAt(_ context.Context) ([]domain.BoardSummary, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BoardSummary, 0, len(s.boardOrder))
	for _, id := range s.boardOrder {
		out = append(out, s.boards[id].Summary())
	}
	return out, s.version
}

func (s *Store) GetBoard(_ context.Context, boardID string) (domain.BoardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return domain.BoardView{}, domain.BoardNotFound(boardID)
	}
	return b.View(), nil
}

func (s *Store) CreateBoard(_ context.Context, in domain.BoardInput) (domain.BoardView, error) {
	name, description, err := in.Validate()
	if err != nil {
		return domain.BoardView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := strconv.Itoa(s.nextBoardID)
	s.nextBoardID++
	b := &domain.Board{ID: id, Name: name, Description: description}
	s.boards[id] = b
	s.boardOrder = append(s.boardOrder, id)
	s.version++
	return b.View(), nil
}

// UpdateBoard replaces a board's name and description. The task set is never
// touched, and boards that still hold unarchived tasks are locked.
func (s *Store) UpdateBoard(_ context.Context, boardID string, in domain.BoardInput) (domain.BoardView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return domain.BoardView{}, domain.BoardNotFound(boardID)
	}
	name, description, err := in.Validate()
	if err != nil {
		return domain.BoardView{}, err
	}
	if !b.AllArchived(s.lookupTask) {
		return domain.BoardView{}, domain.BoardHasUnarchivedTasks(boardID)
	}
	b.Name = name
	b.Description = description
	s.version++
	return b.View(), nil
}

// DeleteBoard removes a board whose tasks are all archived. The archived
// tasks themselves stay in the task collection until DeleteAll.
func (s *Store) DeleteBoard(_ context.Context, boardID string) (domain.ExpandedBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return domain.ExpandedBoard{}, domain.BoardNotFound(boardID)
	}
	if !b.AllArchived(s.lookupTask) {
		return domain.ExpandedBoard{}, domain.BoardHasUnarchivedTasks(boardID)
	}
	prior := b.Expand(s.lookupTask)
	delete(s.boards, boardID)
	for i, id := range s.boardOrder {
		if id == boardID {
			s.boardOrder = append(s.boardOrder[:i], s.boardOrder[i+1:]...)
			break
		}
	}
	s.version++
	return prior, nil
}

// DeleteAll empties the store and resets both id counters. It returns every
// board, with tasks expanded, as it was before the reset.
func (s *Store) DeleteAll(_ context.Context) ([]domain.ExpandedBoard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.ExpandedBoard, 0, len(s.boardOrder))
	for _, id := range s.boardOrder {
		out = append(out, s.boards[id].Expand(s.lookupTask))
	}
	s.boards = make(map[string]*domain.Board)
	s.boardOrder = nil
	s.tasks = make(map[string]*domain.Task)
	s.nextBoardID = 0
	s.nextTaskID = 0
	s.version++
	return out, nil
}

func (s *Store) ListTasks(ctx context.Context, boardID string, sortBy *string) ([]domain.TaskView, error) {
	tasks, _, err := s.ListTasksAt(ctx, boardID, sortBy)
	return tasks, err
}

// ListTasksAt projects the board's tasks, optionally sorted, and reports the
// store version the listing was taken at.
func (s *Store) ListTasksAt(_ context.Context, boardID string, sortBy *string) ([]domain.TaskView, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return nil, s.version, domain.BoardNotFound(boardID)
	}
	tasks := b.TaskViews(s.lookupTask)
	if sortBy != nil {
		if err := domain.SortTasks(tasks, *sortBy); err != nil {
			return nil, s.version, err
		}
	}
	return tasks, s.version, nil
}

func (s *Store) GetTask(_ context.Context, boardID, taskID string) (domain.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, t, err := s.resolveTask(boardID, taskID)
	if err != nil {
		return domain.TaskView{}, err
	}
	return t.View(), nil
}

func (s *Store) CreateTask(_ context.Context, boardID string, in domain.TaskInput) (domain.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[boardID]
	if !ok {
		return domain.TaskView{}, domain.BoardNotFound(boardID)
	}
	name, err := in.Validate()
	if err != nil {
		return domain.TaskView{}, err
	}
	id := strconv.Itoa(s.nextTaskID)
	s.nextTaskID++
	t := &domain.Task{
		ID:          id,
		BoardID:     boardID,
		TaskName:    name,
		DateCreated: s.now(),
	}
	s.tasks[id] = t
	b.Tasks.Add(id)
	s.version++
	return t.View(), nil
}

func (s *Store) DeleteTask(_ context.Context, boardID, taskID string) (domain.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, t, err := s.resolveTask(boardID, taskID)
	if err != nil {
		return domain.TaskView{}, err
	}
	prior := t.View()
	delete(s.tasks, taskID)
	b.Tasks.Remove(taskID)
	s.version++
	return prior, nil
}

// PatchTask applies a partial update. Every member of the patch is validated
// before any of them is applied.
func (s *Store) PatchTask(_ context.Context, boardID, taskID string, p domain.TaskPatch) (domain.TaskView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	from, t, err := s.resolveTask(boardID, taskID)
	if err != nil {
		return domain.TaskView{}, err
	}
	change, err := p.Validate(s.boardExists)
	if err != nil {
		return domain.TaskView{}, err
	}
	if change.TaskName != nil {
		t.TaskName = *change.TaskName
	}
	if change.Archived != nil {
		t.Archived = *change.Archived
	}
	// Re-adding to the current board moves the task to the end of its list.
	if change.BoardID != nil {
		to := s.boards[*change.BoardID]
		from.Tasks.Remove(taskID)
		to.Tasks.Add(taskID)
		t.BoardID = to.ID
	}
	s.version++
	return t.View(), nil
}
