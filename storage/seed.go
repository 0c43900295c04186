package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"taskboard-api/domain"
)

// Seed describes the initial contents of a Store. Tasks are nested under the
// board that owns them so the back-reference is implied by the layout.
type Seed struct {
	NextBoardID int         `yaml:"nextBoardId" toml:"nextBoardId"`
	NextTaskID  int         `yaml:"nextTaskId" toml:"nextTaskId"`
	Boards      []SeedBoard `yaml:"boards" toml:"boards"`
}

type SeedBoard struct {
	ID          string     `yaml:"id" toml:"id"`
	Name        string     `yaml:"name" toml:"name"`
	Description string     `yaml:"description" toml:"description"`
	Tasks       []SeedTask `yaml:"tasks" toml:"tasks"`
}

type SeedTask struct {
	ID          string    `yaml:"id" toml:"id"`
	TaskName    string    `yaml:"taskName" toml:"taskName"`
	DateCreated time.Time `yaml:"dateCreated" toml:"dateCreated"`
	Archived    bool      `yaml:"archived" toml:"archived"`
}

// ReadSeedFile decodes a seed from a .yaml, .yml or .toml file.
func ReadSeedFile(path string) (Seed, error) {
	var seed Seed
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return Seed{}, err
		}
		if err := yaml.Unmarshal(data, &seed); err != nil {
			return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
		}
	case ".toml":
		if _, err := toml.DecodeFile(path, &seed); err != nil {
			return Seed{}, fmt.Errorf("parse seed %s: %w", path, err)
		}
	default:
		return Seed{}, fmt.Errorf("unsupported seed format %q", ext)
	}
	return seed, nil
}

// Load replaces the store contents with seed. Id counters continue after
// the highest numeric id in the seed unless the seed asks for more.
func (s *Store) Load(seed Seed) error {
	boards := make(map[string]*domain.Board, len(seed.Boards))
	order := make([]string, 0, len(seed.Boards))
	tasks := make(map[string]*domain.Task)
	nextBoard, nextTask := seed.NextBoardID, seed.NextTaskID

	for _, sb := range seed.Boards {
		if sb.ID == "" {
			return fmt.Errorf("seed board %q: missing id", sb.Name)
		}
		if _, dup := boards[sb.ID]; dup {
			return fmt.Errorf("seed board %s: duplicate id", sb.ID)
		}
		if sb.Name == "" {
			return fmt.Errorf("seed board %s: %s", sb.ID, domain.MsgNameEmpty)
		}
		b := &domain.Board{ID: sb.ID, Name: sb.Name, Description: sb.Description}
		for _, st := range sb.Tasks {
			if st.ID == "" {
				return fmt.Errorf("seed board %s: task %q missing id", sb.ID, st.TaskName)
			}
			if _, dup := tasks[st.ID]; dup {
				return fmt.Errorf("seed task %s: duplicate id", st.ID)
			}
			if st.TaskName == "" {
				return fmt.Errorf("seed task %s: %s", st.ID, domain.MsgTaskNameEmpty)
			}
			tasks[st.ID] = &domain.Task{
				ID:          st.ID,
				BoardID:     sb.ID,
				TaskName:    st.TaskName,
				DateCreated: st.DateCreated,
				Archived:    st.Archived,
			}
			b.Tasks.Add(st.ID)
			nextTask = max(nextTask, nextNumericID(st.ID))
		}
		boards[sb.ID] = b
		order = append(order, sb.ID)
		nextBoard = max(nextBoard, nextNumericID(sb.ID))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.boards = boards
	s.boardOrder = order
	s.tasks = tasks
	s.nextBoardID = nextBoard
	s.nextTaskID = nextTask
	s.version++
	return nil
}

func nextNumericID(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil || n < 0 {
		return 0
	}
	return n + 1
}
