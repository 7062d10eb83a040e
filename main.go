package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbletea"
	"promodo/internal"
	"promodo/internal/cloud"
	"promodo/internal/config"
	"promodo/internal/planner"
	"promodo/internal/playback"
	"promodo/internal/recorder"
	"promodo/internal/sound"
	"promodo/internal/store"
	"promodo/internal/timer"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LogPath), 0o755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	logFile, err := tea.LogToFile(cfg.LogPath, "promodo")
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer logFile.Close()

	if wrote, err := config.WriteDefaultIfMissing(); err != nil {
		log.Printf("write default config: %v", err)
	} else if wrote {
		log.Printf("wrote default config")
	}

	repo, err := store.NewRepository(cfg.DatabasePath)
	if err != nil {
		return err
	}

	streak, err := repo.UpdateStreakOnAppOpen(time.Now())
	if err != nil {
		log.Printf("update streak: %v", err)
	}

	sessionCfg, err := repo.LoadConfig()
	if err != nil {
		log.Printf("load settings: %v", err)
	}

	rec := recorder.New(repo)
	engine := timer.New(sessionCfg, timer.SystemClock{}, repo, rec)

	plan, err := planner.New(planner.Config{
		APIKey:  cfg.Planner.APIKey,
		BaseURL: cfg.Planner.BaseURL,
		Model:   cfg.Planner.Model,
		Timeout: cfg.Planner.Timeout,
	})
	if err != nil && !errors.Is(err, planner.ErrNoAPIKey) {
		log.Printf("planner disabled: %v", err)
	}

	accounts, err := cloud.NewAccounts(cfg.BackupDir)
	if err != nil {
		return err
	}
	remote, err := cloud.NewFileRemote(cfg.BackupDir)
	if err != nil {
		return err
	}
	sync := cloud.NewSync(repo, remote)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deps := internal.Deps{
		Repo:     repo,
		Engine:   engine,
		Recorder: rec,
		Planner:  plan,
		Accounts: accounts,
		Sync:     sync,
		Streak:   streak,
		Timeout:  cfg.Planner.Timeout,
	}
	if cfg.Sound {
		deps.Sound = sound.NewBell(os.Stderr)
	}

	player, err := playback.NewSpotifyPlayer(ctx, cfg.Spotify.Token)
	switch {
	case err == nil:
		deps.Player = player
		deps.Automation = playback.NewAutomation(player)
		deps.PlayerStates = playback.NewWatcher(player, cfg.Spotify.PollInterval).Watch(ctx)
	case !errors.Is(err, playback.ErrNoToken):
		log.Printf("spotify disabled: %v", err)
	}

	m, err := internal.NewModel(deps)
	if err != nil {
		return err
	}
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case t := <-ticker.C:
				p.Send(internal.MsgTick{At: t})
			case <-ctx.Done():
				return
			}
		}
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}
