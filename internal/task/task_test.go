package task

import (
	"testing"
	"time"
)

func TestToggleStampsCompletion(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	tk := New("  write report ", High, now)
	if tk.Title != "write report" {
		t.Fatalf("Title=%q", tk.Title)
	}

	tk.Toggle(now.Add(time.Hour))
	if !tk.Completed || tk.CompletedAt == nil || !tk.CompletedAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("after toggle: %+v", tk)
	}
	tk.Toggle(now)
	if tk.Completed || tk.CompletedAt != nil {
		t.Fatalf("after second toggle: %+v", tk)
	}
}

func TestAppendSubtasksSkipsBlank(t *testing.T) {
	tk := New("plan trip", Medium, time.Now())
	added := tk.AppendSubtasks([]string{"book flights", "  ", "", "pack"})
	if added != 2 || len(tk.Subtasks) != 2 {
		t.Fatalf("added=%d subtasks=%d", added, len(tk.Subtasks))
	}
	if tk.Subtasks[0].ID == tk.Subtasks[1].ID {
		t.Fatalf("subtask ids must be unique")
	}

	if !tk.ToggleSubtask(tk.Subtasks[1].ID) {
		t.Fatalf("ToggleSubtask returned false")
	}
	done, total := tk.SubtaskProgress()
	if done != 1 || total != 2 {
		t.Fatalf("progress=%d/%d", done, total)
	}
	if tk.ToggleSubtask("missing") {
		t.Fatalf("ToggleSubtask(missing) should be false")
	}
}

func TestParsePriority(t *testing.T) {
	tests := map[string]Priority{"": Medium, "h": High, "LOW": Low, " medium ": Medium}
	for in, want := range tests {
		got, err := ParsePriority(in)
		if err != nil || got != want {
			t.Errorf("ParsePriority(%q)=%q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParsePriority("urgent"); err == nil {
		t.Errorf("expected error")
	}
}

func TestBoard(t *testing.T) {
	now := time.Now()
	b := NewBoard(nil)
	first := New("first", Low, now)
	second := New("second", High, now)
	b.Add(first)
	b.Add(second)

	if b.At(0) != second || b.At(1) != first {
		t.Fatalf("new tasks should be listed first")
	}
	if b.At(2) != nil {
		t.Fatalf("At out of range should be nil")
	}

	first.Toggle(now)
	if b.Pending() != 1 || b.Done() != 1 {
		t.Fatalf("pending=%d done=%d", b.Pending(), b.Done())
	}

	snap := b.Snapshot()
	snap[0].Title = "changed"
	if second.Title != "second" {
		t.Fatalf("snapshot must not alias board tasks")
	}

	if !b.Remove(second.ID) || b.Len() != 1 || b.Find(second.ID) != nil {
		t.Fatalf("remove failed")
	}
	if b.Remove("missing") {
		t.Fatalf("remove missing should be false")
	}
}
