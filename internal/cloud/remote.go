package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"promodo/internal/session"
	"promodo/internal/task"
)

// Snapshot is everything a backup carries.
type Snapshot struct {
	Tasks      []task.Task    `json:"tasks"`
	History    []session.Log  `json:"history"`
	Config     session.Config `json:"config"`
	LastSynced time.Time      `json:"lastSynced"`
}

// Remote stores one snapshot per user.
type Remote interface {
	// Get returns nil without error when the user has no backup yet.
	Get(ctx context.Context, userID string) (*Snapshot, error)
	Put(ctx context.Context, userID string, snap Snapshot) error
}

var safeID = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// FileRemote keeps snapshots as JSON documents in a directory.
type FileRemote struct {
	dir string
}

func NewFileRemote(dir string) (*FileRemote, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileRemote{dir: dir}, nil
}

func (r *FileRemote) path(userID string) (string, error) {
	if !safeID.MatchString(userID) {
		return "", fmt.Errorf("invalid user id %q", userID)
	}
	return filepath.Join(r.dir, "data_"+userID+".json"), nil
}

func (r *FileRemote) Get(ctx context.Context, userID string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := r.path(userID)
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}
	return &snap, nil
}

func (r *FileRemote) Put(ctx context.Context, userID string, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	path, err := r.path(userID)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return writeFileAtomic(path, raw)
}

func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
