package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	Low    Priority = "low"
	Medium Priority = "medium"
	High   Priority = "high"
)

func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "low":
		return Low, nil
	case "", "m", "medium":
		return Medium, nil
	case "h", "high":
		return High, nil
	}
	return "", fmt.Errorf("invalid priority %q", s)
}

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"isCompleted"`
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Completed   bool       `json:"isCompleted"`
	Priority    Priority   `json:"priority"`
	Subtasks    []Subtask  `json:"subtasks"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

func New(title string, priority Priority, now time.Time) *Task {
	return &Task{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Priority:  priority,
		Subtasks:  []Subtask{},
		CreatedAt: now,
	}
}

// Toggle flips the completion flag and stamps or clears CompletedAt.
func (t *Task) Toggle(now time.Time) {
	t.Completed = !t.Completed
	if t.Completed {
		t.CompletedAt = &now
	} else {
		t.CompletedAt = nil
	}
}

// AppendSubtasks adds one open subtask per non-blank title.
func (t *Task) AppendSubtasks(titles []string) int {
	added := 0
	for _, title := range titles {
		title = strings.TrimSpace(title)
		if title == "" {
			continue
		}
		t.Subtasks = append(t.Subtasks, Subtask{
			ID:    uuid.NewString(),
			Title: title,
		})
		added++
	}
	return added
}

func (t *Task) ToggleSubtask(id string) bool {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks[i].Completed = !t.Subtasks[i].Completed
			return true
		}
	}
	return false
}

func (t *Task) SubtaskProgress() (done, total int) {
	for _, s := range t.Subtasks {
		if s.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}
