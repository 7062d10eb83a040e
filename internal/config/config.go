package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AppName        = "promodo"
	configFileName = "config.yaml"

	DefaultPlannerBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultPlannerModel   = "gemini-2.5-flash"
)

// Config holds application settings. Session preferences (durations,
// auto-start, playlists) live in the store, not here.
type Config struct {
	DatabasePath string
	LogPath      string
	BackupDir    string
	Planner      PlannerConfig
	Spotify      SpotifyConfig

	// Sound rings the terminal bell when a countdown starts or finishes.
	Sound bool
}

type PlannerConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type SpotifyConfig struct {
	Token        string
	PollInterval time.Duration
}

type yamlConfig struct {
	DatabasePath string `yaml:"database_path"`
	LogPath      string `yaml:"log_path"`
	BackupDir    string `yaml:"backup_dir"`
	Planner      struct {
		BaseURL        string `yaml:"base_url"`
		Model          string `yaml:"model"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"planner"`
	Spotify struct {
		PollSeconds int `yaml:"poll_seconds"`
	} `yaml:"spotify"`
	Sound *bool `yaml:"sound,omitempty"`
}

// Default returns settings rooted at dataDir.
func Default(dataDir string) Config {
	return Config{
		DatabasePath: filepath.Join(dataDir, "promodo.db"),
		LogPath:      filepath.Join(dataDir, "promodo.log"),
		BackupDir:    filepath.Join(dataDir, "cloud"),
		Planner: PlannerConfig{
			BaseURL: DefaultPlannerBaseURL,
			Model:   DefaultPlannerModel,
			Timeout: 30 * time.Second,
		},
		Spotify: SpotifyConfig{
			PollInterval: 5 * time.Second,
		},
		Sound: true,
	}
}

// Load reads a .env file if present, then the YAML config file at path
// (or the default location when path is empty), then applies environment
// overrides. A missing config file yields defaults.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	dataDir, err := DataDir()
	if err != nil {
		return Config{}, err
	}
	cfg := Default(dataDir)

	if path == "" {
		path = os.Getenv("PROMODO_CONFIG")
	}
	if path == "" {
		path, err = defaultConfigPath()
		if err != nil {
			return cfg, err
		}
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config file: %w", err)
	default:
		var fileData yamlConfig
		if err := yaml.Unmarshal(raw, &fileData); err != nil {
			return cfg, fmt.Errorf("parse config yaml: %w", err)
		}
		applyYAML(&cfg, fileData)
	}

	applyEnv(&cfg)
	return cfg, nil
}

// Save writes the file-backed part of cfg. Secrets are never written.
func Save(path string, cfg Config) error {
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	var fileData yamlConfig
	fileData.DatabasePath = cfg.DatabasePath
	fileData.LogPath = cfg.LogPath
	fileData.BackupDir = cfg.BackupDir
	fileData.Planner.BaseURL = cfg.Planner.BaseURL
	fileData.Planner.Model = cfg.Planner.Model
	fileData.Planner.TimeoutSeconds = int(cfg.Planner.Timeout / time.Second)
	fileData.Spotify.PollSeconds = int(cfg.Spotify.PollInterval / time.Second)
	fileData.Sound = &cfg.Sound

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal config yaml: %w", err)
	}
	if err := os.WriteFile(path, serialized, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// DataDir is where the database, log file and local backups live.
func DataDir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv("PROMODO_HOME")); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, AppName), nil
}

func defaultConfigPath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

func applyYAML(cfg *Config, fileData yamlConfig) {
	if v := strings.TrimSpace(fileData.DatabasePath); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(fileData.LogPath); v != "" {
		cfg.LogPath = v
	}
	if v := strings.TrimSpace(fileData.BackupDir); v != "" {
		cfg.BackupDir = v
	}
	if v := strings.TrimSpace(fileData.Planner.BaseURL); v != "" {
		cfg.Planner.BaseURL = v
	}
	if v := strings.TrimSpace(fileData.Planner.Model); v != "" {
		cfg.Planner.Model = v
	}
	if fileData.Planner.TimeoutSeconds > 0 {
		cfg.Planner.Timeout = time.Duration(fileData.Planner.TimeoutSeconds) * time.Second
	}
	if fileData.Spotify.PollSeconds > 0 {
		cfg.Spotify.PollInterval = time.Duration(fileData.Spotify.PollSeconds) * time.Second
	}
	if fileData.Sound != nil {
		cfg.Sound = *fileData.Sound
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("PROMODO_DB")); v != "" {
		cfg.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); v != "" {
		cfg.Planner.APIKey = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMODO_AI_MODEL")); v != "" {
		cfg.Planner.Model = v
	}
	if v := strings.TrimSpace(os.Getenv("PROMODO_AI_BASE_URL")); v != "" {
		cfg.Planner.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("SPOTIFY_TOKEN")); v != "" {
		cfg.Spotify.Token = v
	}
}

// WriteDefaultIfMissing saves the default settings to the config path
// (PROMODO_CONFIG or the data directory) when no config file exists yet,
// so users have a file to edit. Environment overrides are not written.
// It reports whether a file was written.
func WriteDefaultIfMissing() (bool, error) {
	path := os.Getenv("PROMODO_CONFIG")
	if path == "" {
		var err error
		if path, err = defaultConfigPath(); err != nil {
			return false, err
		}
	}
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}
	dataDir, err := DataDir()
	if err != nil {
		return false, err
	}
	if err := Save(path, Default(dataDir)); err != nil {
		return false, err
	}
	return true, nil
}
