package domain

// Board is a column of tasks. Tasks holds the ids of the tasks whose BoardID
// points back at this board.
type Board struct {
	ID          string
	Name        string
	Description string
	Tasks       TaskSet
}

// BoardSummary is the projection used by the board listing.
type BoardSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BoardView is a board with its task ids.
type BoardView struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tasks       []string `json:"tasks"`
}

// ExpandedBoard is a board with every task id replaced by the task itself.
type ExpandedBoard struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Tasks       []TaskView `json:"tasks"`
}

// TaskLookup resolves a task id to its record.
type TaskLookup func(id string) (*Task, bool)

func (b *Board) Summary() BoardSummary {
	return BoardSummary{ID: b.ID, Name: b.Name, Description: b.Description}
}

func (b *Board) View() BoardView {
	return BoardView{ID: b.ID, Name: b.Name, Description: b.Description, Tasks: b.Tasks.IDs()}
}

func (b *Board) Expand(lookup TaskLookup) ExpandedBoard {
	return ExpandedBoard{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Tasks:       b.TaskViews(lookup),
	}
}

// TaskViews projects the board's tasks in membership order.
func (b *Board) TaskViews(lookup TaskLookup) []TaskView {
	ids := b.Tasks.IDs()
	views := make([]TaskView, 0, len(ids))
	for _, id := range ids {
		if t, ok := lookup(id); ok {
			views = append(views, t.View())
		}
	}
	return views
}

// AllArchived reports whether every task on the board is archived. A board
// without tasks is trivially all archived.
func (b *Board) AllArchived(lookup TaskLookup) bool {
	for _, id := range b.Tasks.ids {
		if t, ok := lookup(id); ok && !t.Archived {
			return false
		}
	}
	return true
}

// TaskSet is an insertion ordered set of task ids. The zero value is empty
// and ready to use.
type TaskSet struct {
	ids   []string
	index map[string]struct{}
}

// Add inserts id at the end of the set. It reports false if id was already
// a member.
func (s *TaskSet) Add(id string) bool {
	if s.index == nil {
		s.index = make(map[string]struct{})
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

func (s *TaskSet) Remove(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

func (s *TaskSet) Has(id string) bool {
	_, ok := s.index[id]
	return ok
}

func (s *TaskSet) Len() int { return len(s.ids) }

// IDs returns a copy of the members in insertion order, never nil.
func (s *TaskSet) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}
