package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateInference(); err != nil {
		return err
	}
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateTimings(); err != nil {
		return err
	}
	if err := c.validateAnnounce(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateInference() error {
	switch c.Inference.Backend {
	case BackendHTTP:
		if strings.TrimSpace(c.Inference.URL) == "" {
			return errors.New("inference.url must be set when inference.backend is \"http\"")
		}
	case BackendONNX:
		if strings.TrimSpace(c.Inference.ModelPath) == "" {
			return errors.New("inference.model_path must be set when inference.backend is \"onnx\"")
		}
		if len(c.Inference.Labels) == 0 {
			return errors.New("inference.labels must list the model classes when inference.backend is \"onnx\"")
		}
	default:
		return fmt.Errorf("inference.backend: unsupported value %q (use \"http\" or \"onnx\")", c.Inference.Backend)
	}
	if c.Inference.ScoreFloor < 0 || c.Inference.ScoreFloor > 1 {
		return errors.New("inference.score_floor must be between 0 and 1")
	}
	if c.Inference.IOUThreshold <= 0 || c.Inference.IOUThreshold > 1 {
		return errors.New("inference.iou_threshold must be greater than 0 and at most 1")
	}
	return nil
}

func (c *Config) validateDetection() error {
	if len(c.Detection.AllowList) == 0 {
		return errors.New("detection.allow_list must include at least one denomination")
	}
	if c.Detection.ConfidenceThreshold < 0 || c.Detection.ConfidenceThreshold > 1 {
		return errors.New("detection.confidence_threshold must be between 0 and 1")
	}
	if c.Detection.WindowSize < 1 {
		return errors.New("detection.window_size must be >= 1")
	}
	return nil
}

func (c *Config) validateTimings() error {
	return ensurePositiveMap(map[string]int{
		"inference.timeout_seconds":      c.Inference.TimeoutSeconds,
		"live.round_interval_ms":         c.Live.RoundIntervalMS,
		"camera.capture_timeout_seconds": c.Camera.CaptureTimeoutSeconds,
		"notifications.request_timeout":  c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateAnnounce() error {
	if c.Announce.CooldownSeconds < 0 {
		return errors.New("announce.cooldown_seconds must be >= 0")
	}
	if c.Announce.Rate < 0 {
		return errors.New("announce.rate must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
