package domain

import (
	"bytes"

	"github.com/bytedance/sonic"
)

// Field is one optional member of a JSON request body. Present is true when
// the key appeared in the body, even if its value was null.
type Field struct {
	Present bool
	Value   any
}

func (f Field) String() (string, bool) {
	s, ok := f.Value.(string)
	return s, ok
}

func (f Field) Bool() (bool, bool) {
	b, ok := f.Value.(bool)
	return b, ok
}

func field(body map[string]any, key string) Field {
	v, ok := body[key]
	return Field{Present: ok, Value: v}
}

// decodeObject parses a request body into its top level members. An empty
// body is an empty object. ok is false when the body is not a JSON object.
func decodeObject(data []byte) (map[string]any, bool) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, true
	}
	var v any
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	obj, ok := v.(map[string]any)
	return obj, ok
}

// BoardInput is the body of board create and replace requests.
type BoardInput struct {
	Malformed   bool
	Name        Field
	Description Field
}

func DecodeBoardInput(data []byte) BoardInput {
	body, ok := decodeObject(data)
	if !ok {
		return BoardInput{Malformed: true}
	}
	return BoardInput{
		Name:        field(body, "name"),
		Description: field(body, "description"),
	}
}

func (in BoardInput) Validate() (name, description string, err error) {
	if in.Malformed {
		return "", "", invalid(MsgBodyNotObject)
	}
	if !in.Name.Present || !in.Description.Present {
		return "", "", invalid(MsgBoardFieldsRequired)
	}
	name, nameOK := in.Name.String()
	description, descOK := in.Description.String()
	if !nameOK || !descOK {
		return "", "", invalid(MsgBoardFieldsType)
	}
	if name == "" {
		return "", "", invalid(MsgNameEmpty)
	}
	return name, description, nil
}

// TaskInput is the body of a task create request.
type TaskInput struct {
	Malformed bool
	TaskName  Field
}

func DecodeTaskInput(data []byte) TaskInput {
	body, ok := decodeObject(data)
	if !ok {
		return TaskInput{Malformed: true}
	}
	return TaskInput{TaskName: field(body, "taskName")}
}

func (in TaskInput) Validate() (string, error) {
	if in.Malformed {
		return "", invalid(MsgBodyNotObject)
	}
	if !in.TaskName.Present {
		return "", invalid(MsgTaskNameRequired)
	}
	name, ok := in.TaskName.String()
	if !ok {
		return "", invalid(MsgTaskNameType)
	}
	if name == "" {
		return "", invalid(MsgTaskNameEmpty)
	}
	return name, nil
}

// TaskPatch is the body of a partial task update. Members other than the
// three below are ignored.
type TaskPatch struct {
	Malformed bool
	TaskName  Field
	Archived  Field
	BoardID   Field
}

func DecodeTaskPatch(data []byte) TaskPatch {
	body, ok := decodeObject(data)
	if !ok {
		return TaskPatch{Malformed: true}
	}
	return TaskPatch{
		TaskName: field(body, "taskName"),
		Archived: field(body, "archived"),
		BoardID:  field(body, "boardId"),
	}
}

// TaskChange is a validated TaskPatch. Nil members are left untouched.
type TaskChange struct {
	TaskName *string
	Archived *bool
	BoardID  *string
}

// Validate checks the patch members in order taskName, archived, boardId and
// stops at the first failure. boardExists resolves the target of a move.
func (p TaskPatch) Validate(boardExists func(id string) bool) (TaskChange, error) {
	var change TaskChange
	if p.Malformed {
		return change, invalid(MsgBodyNotObject)
	}
	if !p.TaskName.Present && !p.Archived.Present && !p.BoardID.Present {
		return change, invalid(MsgPatchEmpty)
	}
	if p.TaskName.Present {
		name, ok := p.TaskName.String()
		if !ok {
			return TaskChange{}, invalid(MsgTaskNameType)
		}
		if name == "" {
			return TaskChange{}, invalid(MsgTaskNameEmpty)
		}
		change.TaskName = &name
	}
	if p.Archived.Present {
		archived, ok := p.Archived.Bool()
		if !ok {
			return TaskChange{}, invalid(MsgArchivedType)
		}
		change.Archived = &archived
	}
	if p.BoardID.Present {
		boardID, ok := p.BoardID.String()
		if !ok {
			return TaskChange{}, invalid(MsgBoardIDType)
		}
		if !boardExists(boardID) {
			return TaskChange{}, BoardNotFound(boardID)
		}
		change.BoardID = &boardID
	}
	return change, nil
}
