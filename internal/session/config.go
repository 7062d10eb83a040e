package session

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the user's session preferences. It is persisted as a single
// document and replaced wholesale on save.
type Config struct {
	WorkMinutes       int  `json:"workDuration"`
	ShortBreakMinutes int  `json:"shortBreakDuration"`
	LongBreakMinutes  int  `json:"longBreakDuration"`
	AutoStartBreaks   bool `json:"autoStartBreaks"`
	AutoStartWork     bool `json:"autoStartWork"`

	SpotifyClientID      string `json:"spotifyClientId,omitempty"`
	SpotifyWorkPlaylist  string `json:"spotifyWorkPlaylistId,omitempty"`
	SpotifyBreakPlaylist string `json:"spotifyBreakPlaylistId,omitempty"`
}

var ErrInvalidDuration = errors.New("durations must be positive")

func DefaultConfig() Config {
	return Config{
		WorkMinutes:       25,
		ShortBreakMinutes: 5,
		LongBreakMinutes:  15,
		AutoStartBreaks:   true,
		AutoStartWork:     false,
	}
}

// Minutes returns the configured length of mode in minutes.
func (c Config) Minutes(m Mode) int {
	switch m {
	case ShortBreak:
		return c.ShortBreakMinutes
	case LongBreak:
		return c.LongBreakMinutes
	default:
		return c.WorkMinutes
	}
}

func (c Config) Duration(m Mode) time.Duration {
	return time.Duration(c.Minutes(m)) * time.Minute
}

// AutoStart reports whether a countdown entering mode m starts by itself.
func (c Config) AutoStart(m Mode) bool {
	if m.IsBreak() {
		return c.AutoStartBreaks
	}
	return c.AutoStartWork
}

// Playlist returns the Spotify context URI configured for mode m.
func (c Config) Playlist(m Mode) string {
	if m.IsBreak() {
		return c.SpotifyBreakPlaylist
	}
	return c.SpotifyWorkPlaylist
}

// Validate is for input surfaces; the timer itself trusts its config.
func (c Config) Validate() error {
	for _, m := range Modes {
		if c.Minutes(m) <= 0 {
			return fmt.Errorf("%s: %w", m.Label(), ErrInvalidDuration)
		}
	}
	return nil
}
