package recorder

import (
	"context"
	"log"
	"sync"
	"time"

	"promodo/internal/session"
)

// Appender persists a single session log.
type Appender interface {
	AppendSession(session.Log) error
}

// Backuper pushes the current local data to a remote copy.
type Backuper interface {
	Backup(ctx context.Context) error
}

// Recorder turns finished sessions into history entries. Persistence
// failures are logged and swallowed; the timer never waits on a backup.
type Recorder struct {
	store   Appender
	timeout time.Duration

	mu      sync.Mutex
	backup  Backuper
	pending sync.WaitGroup
}

func New(store Appender) *Recorder {
	return &Recorder{
		store:   store,
		timeout: 30 * time.Second,
	}
}

// SetBackup attaches or detaches (nil) the remote backup.
func (r *Recorder) SetBackup(b Backuper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backup = b
}

func (r *Recorder) Record(l session.Log) {
	if err := r.store.AppendSession(l); err != nil {
		log.Printf("recorder: append session %s: %v", l.ID, err)
		return
	}

	r.mu.Lock()
	backup := r.backup
	r.mu.Unlock()

	if backup == nil {
		return
	}

	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if err := backup.Backup(ctx); err != nil {
			log.Printf("recorder: backup after session %s: %v", l.ID, err)
		}
	}()
}

// Wait blocks until in-flight backups finish or ctx is done.
func (r *Recorder) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
