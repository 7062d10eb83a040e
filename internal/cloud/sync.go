package cloud

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"promodo/internal/session"
	"promodo/internal/task"
)

// LocalStore is the part of the durable store a sync needs.
type LocalStore interface {
	LoadTasks() ([]task.Task, error)
	SaveTasks([]task.Task) error
	LoadConfig() (session.Config, error)
	SaveConfig(session.Config) error
	ListSessions() ([]session.Log, error)
	ReplaceAllSessions([]session.Log) error
}

var ErrSignedOut = errors.New("not signed in")

// Sync mirrors local data to a Remote for the signed-in user. Restores are
// last-writer-wins: a remote snapshot replaces local data wholesale.
type Sync struct {
	local  LocalStore
	remote Remote
	now    func() time.Time

	mu   sync.Mutex
	user *User
}

func NewSync(local LocalStore, remote Remote) *Sync {
	return &Sync{local: local, remote: remote, now: time.Now}
}

func (s *Sync) User() *User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

func (s *Sync) SignOut() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = nil
}

// Restore signs user in and pulls their backup. When a backup exists it
// replaces local tasks, config and history and is returned; otherwise the
// local data is pushed as the user's first backup and nil is returned.
func (s *Sync) Restore(ctx context.Context, user User) (*Snapshot, error) {
	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	snap, err := s.remote.Get(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch backup: %w", err)
	}
	if snap == nil {
		return nil, s.Backup(ctx)
	}

	if err := s.local.SaveTasks(snap.Tasks); err != nil {
		return nil, fmt.Errorf("restore tasks: %w", err)
	}
	if err := s.local.SaveConfig(snap.Config); err != nil {
		return nil, fmt.Errorf("restore config: %w", err)
	}
	if err := s.local.ReplaceAllSessions(snap.History); err != nil {
		return nil, fmt.Errorf("restore history: %w", err)
	}
	return snap, nil
}

// Backup pushes the current local data for the signed-in user.
func (s *Sync) Backup(ctx context.Context) error {
	user := s.User()
	if user == nil {
		return ErrSignedOut
	}

	tasks, err := s.local.LoadTasks()
	if err != nil {
		return fmt.Errorf("load tasks: %w", err)
	}
	cfg, err := s.local.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	history, err := s.local.ListSessions()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	return s.remote.Put(ctx, user.ID, Snapshot{
		Tasks:      tasks,
		History:    history,
		Config:     cfg,
		LastSynced: s.now(),
	})
}
