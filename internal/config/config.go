package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir  string `toml:"data_dir"`
	LogDir   string `toml:"log_dir"`
	InboxDir string `toml:"inbox_dir"`
	APIBind  string `toml:"api_bind"`
	APIToken string `toml:"api_token"`
}

// Supported inference backends.
const (
	BackendHTTP = "http"
	BackendONNX = "onnx"
)

// Inference contains configuration for the detection backend.
type Inference struct {
	Backend        string   `toml:"backend"`
	URL            string   `toml:"url"`
	APIKey         string   `toml:"api_key"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
	ModelPath      string   `toml:"model_path"`
	SharedLibrary  string   `toml:"shared_library"`
	Labels         []string `toml:"labels"`
	InputSize      int      `toml:"input_size"`
	ScoreFloor     float64  `toml:"score_floor"`
	IOUThreshold   float64  `toml:"iou_threshold"`
}

// Detection contains the confirmation policy knobs.
type Detection struct {
	AllowList           []string `toml:"allow_list"`
	ConfidenceThreshold float64  `toml:"confidence_threshold"`
	WindowSize          int      `toml:"window_size"`
}

// Live contains configuration for the continuous polling loop.
type Live struct {
	RoundIntervalMS int  `toml:"round_interval_ms"`
	AutoStart       bool `toml:"auto_start"`
}

// Camera contains configuration for frame capture.
type Camera struct {
	Device                string `toml:"device"`
	FFmpegBinary          string `toml:"ffmpeg_binary"`
	InputFormat           string `toml:"input_format"`
	CaptureTimeoutSeconds int    `toml:"capture_timeout_seconds"`
	MaxEdge               int    `toml:"max_edge"`
}

// Announce contains configuration for spoken announcements.
type Announce struct {
	Enabled         bool   `toml:"enabled"`
	Command         string `toml:"command"`
	Voice           string `toml:"voice"`
	Rate            int    `toml:"rate"`
	Language        string `toml:"language"`
	Unit            string `toml:"unit"`
	CooldownSeconds int    `toml:"cooldown_seconds"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Confirmations  bool   `toml:"confirmations"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for cashcue.
//
// Configuration sections by subsystem:
//   - Paths: data, log, and inbox directories plus the API bind address
//   - Inference: remote HTTP detector or local ONNX model
//   - Detection: allow list, confidence threshold, confirmation window
//   - Live: polling cadence for the continuous camera loop
//   - Camera: V4L2 device and ffmpeg capture settings
//   - Announce: speech command, phrasing, and cool-down
//   - Notifications: ntfy push notification settings
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths"`
	Inference     Inference     `toml:"inference"`
	Detection     Detection     `toml:"detection"`
	Live          Live          `toml:"live"`
	Camera        Camera        `toml:"camera"`
	Announce      Announce      `toml:"announce"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cashcue/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cashcue.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		if err := os.MkdirAll(c.Paths.InboxDir, 0o755); err != nil {
			return fmt.Errorf("create inbox directory %q: %w", c.Paths.InboxDir, err)
		}
	}
	return nil
}

// HistoryPath returns the SQLite database location for confirmed results.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LockPath returns the single-instance lock file used by the daemon.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "cashcue.lock")
}

// RoundInterval returns the delay between live rounds.
func (c *Config) RoundInterval() time.Duration {
	return time.Duration(c.Live.RoundIntervalMS) * time.Millisecond
}

// Cooldown returns the announcement dedup window.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Announce.CooldownSeconds) * time.Second
}

// InferenceTimeout returns the per-call inference deadline.
func (c *Config) InferenceTimeout() time.Duration {
	return time.Duration(c.Inference.TimeoutSeconds) * time.Second
}

// CaptureTimeout returns the per-frame camera deadline.
func (c *Config) CaptureTimeout() time.Duration {
	return time.Duration(c.Camera.CaptureTimeoutSeconds) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
