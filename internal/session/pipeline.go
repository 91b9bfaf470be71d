package session

import (
	"context"
	"log/slog"

	"cashcue/internal/confirm"
	"cashcue/internal/detection"
	"cashcue/internal/inference"
	"cashcue/internal/logging"
)

// Outcome is the result of one round before it reaches the confirmer.
type Outcome struct {
	Round      confirm.Round
	Best       detection.Detection
	Candidates int
	Kept       int
	Err        error
}

// Pipeline runs inference, normalization, filtering and selection for a
// single image.
type Pipeline struct {
	gateway   inference.Gateway
	allow     detection.AllowList
	threshold float64
	logger    *slog.Logger
}

// NewPipeline builds a Pipeline.
func NewPipeline(gateway inference.Gateway, allow []string, threshold float64, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		gateway:   gateway,
		allow:     detection.NewAllowList(allow...),
		threshold: threshold,
		logger:    logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Round classifies image. A failed inference call yields an absent round;
// Err carries the cause for logging only.
func (p *Pipeline) Round(ctx context.Context, image []byte) Outcome {
	records, err := p.gateway.Infer(ctx, image)
	if err != nil {
		logging.WithContext(ctx, p.logger).Debug("inference failed; round counted as absent",
			logging.Error(err),
			logging.String(logging.FieldEventType, "inference_failed"),
		)
		return Outcome{Round: confirm.Absent(), Err: err}
	}
	batch := detection.NormalizeAll(records)
	kept := detection.Filter(batch, p.allow, p.threshold)
	best, ok := detection.Best(kept)
	out := Outcome{Candidates: len(batch), Kept: len(kept)}
	if !ok {
		out.Round = confirm.Absent()
		return out
	}
	out.Best = best
	out.Round = confirm.Seen(best.Denomination)
	return out
}
