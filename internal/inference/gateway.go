package inference

import (
	"context"
	"fmt"
	"log/slog"

	"cashcue/internal/config"
)

// Gateway runs the classifier on a single encoded image.
type Gateway interface {
	Infer(ctx context.Context, image []byte) ([]map[string]any, error)
}

// Closer is implemented by gateways that hold native resources.
type Closer interface {
	Close() error
}

// New builds the gateway selected by cfg.Inference.Backend.
func New(cfg *config.Config, logger *slog.Logger) (Gateway, error) {
	if cfg == nil {
		return nil, fmt.Errorf("inference: config is nil")
	}
	switch cfg.Inference.Backend {
	case config.BackendONNX:
		return NewONNXGateway(ONNXOptions{
			ModelPath:     cfg.Inference.ModelPath,
			SharedLibrary: cfg.Inference.SharedLibrary,
			Labels:        cfg.Inference.Labels,
			InputSize:     cfg.Inference.InputSize,
			ScoreFloor:    cfg.Inference.ScoreFloor,
			IOUThreshold:  cfg.Inference.IOUThreshold,
		}, logger)
	case config.BackendHTTP, "":
		return NewHTTPGateway(cfg.Inference.URL,
			WithAPIKey(cfg.Inference.APIKey),
			WithTimeout(cfg.InferenceTimeout()),
		), nil
	default:
		return nil, fmt.Errorf("inference: unsupported backend %q", cfg.Inference.Backend)
	}
}
