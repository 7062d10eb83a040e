package playback

import (
	"context"
	"log"
	"time"
)

// Watcher polls a player and publishes state changes on a channel. The
// channel is closed when the watch context ends.
type Watcher struct {
	player   Player
	interval time.Duration
}

func NewWatcher(player Player, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Watcher{player: player, interval: interval}
}

func (w *Watcher) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 1)
	go func() {
		defer close(ch)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		var last State
		first := true
		for {
			s, err := w.player.State(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("playback: poll state: %v", err)
				s = State{}
			}
			if first || s != last {
				select {
				case ch <- s:
				case <-ctx.Done():
					return
				}
				last, first = s, false
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
	return ch
}
