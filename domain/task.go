package domain

import "time"

// Task is a single card stored by the board service.
type Task struct {
	ID          string
	BoardID     string
	TaskName    string
	DateCreated time.Time
	Archived    bool
}

// TaskView is the wire projection of a task. DateCreated is milliseconds
// since the Unix epoch.
type TaskView struct {
	ID          string `json:"id"`
	BoardID     string `json:"boardId"`
	TaskName    string `json:"taskName"`
	DateCreated int64  `json:"dateCreated"`
	Archived    bool   `json:"archived"`
}

func (t *Task) View() TaskView {
	return TaskView{
		ID:          t.ID,
		BoardID:     t.BoardID,
		TaskName:    t.TaskName,
		DateCreated: t.DateCreated.UnixMilli(),
		Archived:    t.Archived,
	}
}
