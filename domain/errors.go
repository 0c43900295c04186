package domain

import "fmt"

// Kind classifies a request failure.
type Kind int

const (
	KindNotFound Kind = iota + 1
	KindInvalidInput
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindInvalidInput:
		return "invalid_input"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is returned by every board and task operation that is rejected
// before mutating anything. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches the kind sentinels below, so callers can write
// errors.Is(err, domain.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

var (
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrConflict     = &Error{Kind: KindConflict}
)

const (
	MsgBoardFieldsRequired = "The name and description fields are required in the request body."
	MsgBoardFieldsType     = "The name and description fields must be strings."
	MsgNameEmpty           = "The name field cannot be empty."
	MsgTaskNameRequired    = "The taskName field is required in the request body."
	MsgTaskNameType        = "The taskName field must be a string."
	MsgTaskNameEmpty       = "The taskName field cannot be empty."
	MsgArchivedType        = "The archived field must be a boolean."
	MsgBoardIDType         = "The boardId field must be a string."
	MsgPatchEmpty          = "At least 1 field must be provided."
	MsgBodyNotObject       = "The request body must be a JSON object."
)

func invalid(msg string) *Error {
	return &Error{Kind: KindInvalidInput, Message: msg}
}

func BoardNotFound(boardID string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Board with id %s does not exist.", boardID)}
}

func TaskNotFound(taskID string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Task with id %s does not exist.", taskID)}
}

func TaskNotOnBoard(boardID, taskID string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("Board with id %s has no task with id %s.", boardID, taskID)}
}

func BoardHasUnarchivedTasks(boardID string) *Error {
	return &Error{Kind: KindConflict, Message: fmt.Sprintf("Board with id %s has unarchived tasks.", boardID)}
}

func InvalidSortKey(key string) *Error {
	return invalid(fmt.Sprintf("Can only sort by taskName, dateCreated, or id. Not %s.", key))
}
