package playback

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"promodo/internal/session"
)

// State mirrors what the external player reports.
type State struct {
	Connected bool
	Playing   bool
	Track     string
	Artist    string
	Volume    int
	Progress  time.Duration
	Duration  time.Duration
}

// Playlist is one of the user's saved playlists.
type Playlist struct {
	ID     string
	Name   string
	URI    string
	Tracks int
}

// Player controls an external music player.
type Player interface {
	Play(ctx context.Context, contextURI string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
	SetVolume(ctx context.Context, percent int) error
	Seek(ctx context.Context, position time.Duration) error
	State(ctx context.Context) (State, error)
	Playlists(ctx context.Context) ([]Playlist, error)
}

var ErrNoToken = errors.New("no Spotify access token")

// Automation follows the timer with the player: a running work countdown
// plays the work playlist, a running break plays the break playlist, and
// stopping the timer pauses whatever is playing.
type Automation struct {
	player Player

	mu      sync.Mutex
	current string
	playing bool
}

func NewAutomation(player Player) *Automation {
	return &Automation{player: player}
}

// Apply reconciles the player with the timer. It only issues a command
// when the desired state differs from the last one it set.
func (a *Automation) Apply(ctx context.Context, running bool, mode session.Mode, cfg session.Config) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !running {
		if !a.playing {
			return nil
		}
		if err := a.player.Pause(ctx); err != nil {
			return err
		}
		a.playing = false
		return nil
	}

	target := normalizeURI(cfg.Playlist(mode))
	if target == "" || (a.playing && a.current == target) {
		return nil
	}
	if err := a.player.Play(ctx, target); err != nil {
		return err
	}
	a.current = target
	a.playing = true
	return nil
}

// Observe records a state change reported by the player itself, so a user
// pausing music elsewhere is not fought by the automation.
func (a *Automation) Observe(s State) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !s.Playing {
		a.playing = false
	}
}

// ClampVolume keeps a volume step inside 0..100.
func ClampVolume(percent int) int {
	return min(max(percent, 0), 100)
}

// SeekTarget moves the current position by delta, staying inside the track.
func SeekTarget(s State, delta time.Duration) time.Duration {
	pos := max(s.Progress+delta, 0)
	if s.Duration > 0 && pos > s.Duration {
		pos = s.Duration
	}
	return pos
}

// normalizeURI accepts a bare playlist id, an open.spotify.com link or a
// spotify: URI.
func normalizeURI(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case s == "":
		return ""
	case strings.HasPrefix(s, "spotify:"):
		return s
	case strings.Contains(s, "open.spotify.com/"):
		rest := s[strings.Index(s, "open.spotify.com/")+len("open.spotify.com/"):]
		if i := strings.IndexAny(rest, "?#"); i >= 0 {
			rest = rest[:i]
		}
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		if len(parts) >= 2 {
			return "spotify:" + parts[len(parts)-2] + ":" + parts[len(parts)-1]
		}
		return ""
	default:
		return "spotify:playlist:" + s
	}
}
