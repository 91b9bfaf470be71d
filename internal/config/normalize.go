package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeInference(); err != nil {
		return err
	}
	c.normalizeDetection()
	c.normalizeCamera()
	c.normalizeAnnounce()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	// An empty inbox disables directory watching.
	if c.Paths.InboxDir, err = expandPath(strings.TrimSpace(c.Paths.InboxDir)); err != nil {
		return fmt.Errorf("paths.inbox_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeInference() error {
	c.Inference.Backend = strings.ToLower(strings.TrimSpace(c.Inference.Backend))
	if c.Inference.Backend == "" {
		c.Inference.Backend = defaultInferenceBackend
	}
	c.Inference.URL = strings.TrimSpace(c.Inference.URL)
	if value, ok := os.LookupEnv("CASHCUE_INFERENCE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Inference.URL = strings.TrimSpace(value)
	}
	if c.Inference.URL == "" {
		c.Inference.URL = defaultInferenceURL
	}
	c.Inference.APIKey = strings.TrimSpace(c.Inference.APIKey)
	if value, ok := os.LookupEnv("CASHCUE_INFERENCE_API_KEY"); ok && strings.TrimSpace(value) != "" {
		c.Inference.APIKey = strings.TrimSpace(value)
	}
	var err error
	if c.Inference.ModelPath, err = expandPath(strings.TrimSpace(c.Inference.ModelPath)); err != nil {
		return fmt.Errorf("inference.model_path: %w", err)
	}
	if c.Inference.SharedLibrary, err = expandPath(strings.TrimSpace(c.Inference.SharedLibrary)); err != nil {
		return fmt.Errorf("inference.shared_library: %w", err)
	}
	c.Inference.Labels = trimList(c.Inference.Labels)
	if len(c.Inference.Labels) == 0 {
		c.Inference.Labels = append([]string(nil), DefaultAllowList...)
	}
	if c.Inference.InputSize <= 0 {
		c.Inference.InputSize = defaultInferenceInputSize
	}
	return nil
}

func (c *Config) normalizeDetection() {
	c.Detection.AllowList = dedupeList(trimList(c.Detection.AllowList))
}

func (c *Config) normalizeCamera() {
	c.Camera.Device = strings.TrimSpace(c.Camera.Device)
	c.Camera.FFmpegBinary = strings.TrimSpace(c.Camera.FFmpegBinary)
	if c.Camera.FFmpegBinary == "" {
		c.Camera.FFmpegBinary = defaultFFmpegBinary
	}
	c.Camera.InputFormat = strings.TrimSpace(c.Camera.InputFormat)
	if c.Camera.InputFormat == "" {
		c.Camera.InputFormat = defaultCameraInputFormat
	}
	if c.Camera.MaxEdge < 0 {
		c.Camera.MaxEdge = 0
	}
}

func (c *Config) normalizeAnnounce() {
	c.Announce.Command = strings.TrimSpace(c.Announce.Command)
	c.Announce.Voice = strings.TrimSpace(c.Announce.Voice)
	c.Announce.Language = strings.TrimSpace(c.Announce.Language)
	if c.Announce.Language == "" {
		c.Announce.Language = defaultAnnounceLanguage
	}
	c.Announce.Unit = strings.TrimSpace(c.Announce.Unit)
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func dedupeList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, value := range values {
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}
