package store

import (
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"promodo/internal/session"
	"promodo/internal/task"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewRepository(filepath.Join(t.TempDir(), "nested", "promodo.db"))
	if err != nil {
		t.Fatalf("NewRepository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestNewRepositoryRejectsEmptyPath(t *testing.T) {
	if _, err := NewRepository("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestSettingsGetPutDelete(t *testing.T) {
	repo := newTestRepo(t)

	var v string
	if err := repo.Get("theme", &v); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing=%v, want ErrNotFound", err)
	}
	if err := repo.Put("theme", "dark"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Put("theme", "light"); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	if err := repo.Get("theme", &v); err != nil || v != "light" {
		t.Fatalf("Get=%q, %v", v, err)
	}
	if err := repo.Delete("theme"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Get("theme", &v); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete=%v", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	repo := newTestRepo(t)

	cfg, err := repo.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != session.DefaultConfig() {
		t.Fatalf("LoadConfig on empty store=%+v, want defaults", cfg)
	}

	cfg.WorkMinutes = 50
	cfg.AutoStartWork = true
	cfg.SpotifyWorkPlaylist = "spotify:playlist:abc"
	if err := repo.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	loaded, err := repo.LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded != cfg {
		t.Fatalf("loaded=%+v, want %+v", loaded, cfg)
	}
}

func TestTasksSaveLoadKeepsOrder(t *testing.T) {
	repo := newTestRepo(t)
	now := time.UnixMilli(time.Now().UnixMilli())

	a := task.New("alpha", task.High, now)
	a.AppendSubtasks([]string{"one", "two"})
	b := task.New("beta", task.Low, now)
	b.Toggle(now.Add(time.Minute))

	if err := repo.SaveTasks([]task.Task{*b, *a}); err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}
	loaded, err := repo.LoadTasks()
	if err != nil {
		t.Fatalf("LoadTasks: %v", err)
	}
	if len(loaded) != 2 || loaded[0].ID != b.ID || loaded[1].ID != a.ID {
		t.Fatalf("loaded order unexpected: %+v", loaded)
	}
	if !loaded[0].Completed || loaded[0].CompletedAt == nil || !loaded[0].CompletedAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("completion not persisted: %+v", loaded[0])
	}
	if len(loaded[1].Subtasks) != 2 || loaded[1].Subtasks[1].Title != "two" || loaded[1].Priority != task.High {
		t.Fatalf("subtasks not persisted: %+v", loaded[1])
	}
	if !loaded[1].CreatedAt.Equal(now) {
		t.Fatalf("CreatedAt=%v, want %v", loaded[1].CreatedAt, now)
	}

	// Replacing drops tasks that are no longer present.
	if err := repo.SaveTasks([]task.Task{*a}); err != nil {
		t.Fatalf("SaveTasks: %v", err)
	}
	loaded, _ = repo.LoadTasks()
	if len(loaded) != 1 || loaded[0].ID != a.ID {
		t.Fatalf("after replace: %+v", loaded)
	}

	a.Title = "alpha renamed"
	if err := repo.PutTask(0, a); err != nil {
		t.Fatalf("PutTask: %v", err)
	}
	if err := repo.DeleteTask("missing"); err != nil {
		t.Fatalf("DeleteTask missing: %v", err)
	}
	loaded, _ = repo.LoadTasks()
	if loaded[0].Title != "alpha renamed" {
		t.Fatalf("PutTask did not update: %+v", loaded[0])
	}
	if err := repo.DeleteTask(a.ID); err != nil {
		t.Fatalf("DeleteTask: %v", err)
	}
	loaded, _ = repo.LoadTasks()
	if len(loaded) != 0 {
		t.Fatalf("expected empty task list, got %d", len(loaded))
	}
}

func sessionLog(id string, start time.Time, mode session.Mode) session.Log {
	return session.Log{
		ID:              id,
		StartedAt:       start,
		EndedAt:         start.Add(25 * time.Minute),
		DurationMinutes: 25,
		Mode:            mode,
		Completed:       true,
		TaskIDs:         []string{},
	}
}

func TestAppendAndListSessions(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2024, 2, 1, 10, 0, 0, 123456789, time.UTC)

	l := sessionLog("s1", base, session.Work)
	l.TaskIDs = []string{"t1", "t2"}
	l.Completed = false
	if err := repo.AppendSession(l); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}
	if err := repo.AppendSession(l); err == nil {
		t.Fatalf("appending a duplicate id should fail")
	}

	logs, err := repo.ListSessions()
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("len=%d, want 1", len(logs))
	}
	if !reflect.DeepEqual(logs[0], l) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", logs[0], l)
	}
}

func TestReplaceAllSessions(t *testing.T) {
	base := time.Date(2024, 2, 1, 10, 0, 0, 123456789, time.UTC)
	local := time.Date(2024, 2, 3, 8, 30, 15, 987654321, time.Local)
	tests := []struct {
		name string
		logs []session.Log
	}{
		{"empty", []session.Log{}},
		{"one", []session.Log{sessionLog("a", base, session.Work)}},
		{"many", []session.Log{
			sessionLog("a", base, session.Work),
			sessionLog("b", base.Add(time.Hour+time.Nanosecond), session.Work),
			sessionLog("c", base.Add(2*time.Hour), session.ShortBreak),
		}},
		{"local time", []session.Log{sessionLog("l", local, session.LongBreak)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newTestRepo(t)
			if err := repo.AppendSession(sessionLog("old", base, session.Work)); err != nil {
				t.Fatalf("AppendSession: %v", err)
			}
			if err := repo.ReplaceAllSessions(tt.logs); err != nil {
				t.Fatalf("ReplaceAllSessions: %v", err)
			}
			logs, err := repo.ListSessions()
			if err != nil {
				t.Fatalf("ListSessions: %v", err)
			}
			if !reflect.DeepEqual(logs, tt.logs) {
				t.Fatalf("history=%+v\nwant %+v", logs, tt.logs)
			}
		})
	}
}

func TestSessionKeepsFixedZoneOffset(t *testing.T) {
	repo := newTestRepo(t)
	zone := time.FixedZone("", 2*60*60)
	start := time.Date(2024, 7, 1, 23, 59, 59, 999999999, zone)
	if err := repo.AppendSession(sessionLog("z", start, session.Work)); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	logs, err := repo.ListSessions()
	if err != nil || len(logs) != 1 {
		t.Fatalf("ListSessions=%v, %v", logs, err)
	}
	got := logs[0].StartedAt
	if !got.Equal(start) || got.Day() != 1 {
		t.Fatalf("StartedAt=%v, want %v", got, start)
	}
	if _, off := got.Zone(); off != 2*60*60 {
		t.Fatalf("offset=%d", off)
	}
}

func TestReplaceAllSessionsIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	base := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.AppendSession(sessionLog("keep", base, session.Work)); err != nil {
		t.Fatalf("AppendSession: %v", err)
	}

	dup := []session.Log{sessionLog("x", base, session.Work), sessionLog("x", base, session.Work)}
	if err := repo.ReplaceAllSessions(dup); err == nil {
		t.Fatalf("expected duplicate id error")
	}
	logs, _ := repo.ListSessions()
	if len(logs) != 1 || logs[0].ID != "keep" {
		t.Fatalf("failed replace must leave history untouched: %+v", logs)
	}
}
