package playback

import (
	"context"
	"strings"
	"time"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// SpotifyPlayer drives the user's active Spotify device through the Web
// API using a pre-issued access token.
type SpotifyPlayer struct {
	client *spotify.Client
}

func NewSpotifyPlayer(ctx context.Context, token string) (*SpotifyPlayer, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrNoToken
	}
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	return &SpotifyPlayer{client: spotify.New(httpClient)}, nil
}

func (p *SpotifyPlayer) Play(ctx context.Context, contextURI string) error {
	uri := spotify.URI(contextURI)
	return p.client.PlayOpt(ctx, &spotify.PlayOptions{PlaybackContext: &uri})
}

func (p *SpotifyPlayer) Pause(ctx context.Context) error {
	return p.client.Pause(ctx)
}

// Resume continues the current context on the active device.
func (p *SpotifyPlayer) Resume(ctx context.Context) error {
	return p.client.Play(ctx)
}

func (p *SpotifyPlayer) Next(ctx context.Context) error {
	return p.client.Next(ctx)
}

func (p *SpotifyPlayer) Previous(ctx context.Context) error {
	return p.client.Previous(ctx)
}

func (p *SpotifyPlayer) SetVolume(ctx context.Context, percent int) error {
	return p.client.Volume(ctx, ClampVolume(percent))
}

func (p *SpotifyPlayer) Seek(ctx context.Context, position time.Duration) error {
	return p.client.Seek(ctx, int(position.Milliseconds()))
}

// Playlists returns the first page of the user's playlists.
func (p *SpotifyPlayer) Playlists(ctx context.Context) ([]Playlist, error) {
	page, err := p.client.CurrentUsersPlaylists(ctx, spotify.Limit(50))
	if err != nil {
		return nil, err
	}
	out := make([]Playlist, 0, len(page.Playlists))
	for _, pl := range page.Playlists {
		out = append(out, Playlist{
			ID:     string(pl.ID),
			Name:   pl.Name,
			URI:    string(pl.URI),
			Tracks: int(pl.Tracks.Total),
		})
	}
	return out, nil
}

func (p *SpotifyPlayer) State(ctx context.Context) (State, error) {
	ps, err := p.client.PlayerState(ctx)
	if err != nil {
		return State{}, err
	}
	s := State{Connected: true}
	if ps == nil {
		return s, nil
	}
	s.Playing = ps.Playing
	s.Volume = int(ps.Device.Volume)
	s.Progress = time.Duration(ps.Progress) * time.Millisecond
	if ps.Item != nil {
		s.Duration = time.Duration(ps.Item.Duration) * time.Millisecond
		s.Track = ps.Item.Name
		if len(ps.Item.Artists) > 0 {
			s.Artist = ps.Item.Artists[0].Name
		}
	}
	return s, nil
}
