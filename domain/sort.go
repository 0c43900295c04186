package domain

import (
	"sort"
	"strings"
)

const (
	SortByTaskName    = "taskName"
	SortByDateCreated = "dateCreated"
	SortByID          = "id"
)

func ValidateSortKey(key string) error {
	switch key {
	case SortByTaskName, SortByDateCreated, SortByID:
		return nil
	default:
		return InvalidSortKey(key)
	}
}

// SortTasks orders tasks ascending by key, keeping the existing order of
// equal elements. Ids compare as strings, so "10" sorts before "2".
func SortTasks(tasks []TaskView, key string) error {
	if err := ValidateSortKey(key); err != nil {
		return err
	}
	var less func(a, b TaskView) bool
	switch key {
	case SortByTaskName:
		less = func(a, b TaskView) bool { return strings.Compare(a.TaskName, b.TaskName) < 0 }
	case SortByDateCreated:
		less = func(a, b TaskView) bool { return a.DateCreated < b.DateCreated }
	case SortByID:
		less = func(a, b TaskView) bool { return strings.Compare(a.ID, b.ID) < 0 }
	}
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
	return nil
}
