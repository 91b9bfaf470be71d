package announce

import (
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"

	"cashcue/internal/services"
)

var commandContext = exec.CommandContext

// Speaker renders text audibly. Speak blocks until playback finishes or ctx
// is cancelled.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Option configures the CommandSpeaker.
type Option func(*CommandSpeaker)

// WithBinary overrides the default speech binary.
func WithBinary(binary string) Option {
	return func(s *CommandSpeaker) {
		if binary != "" {
			s.binary = binary
		}
	}
}

// WithVoice selects the synthesizer voice.
func WithVoice(voice string) Option {
	return func(s *CommandSpeaker) {
		s.voice = strings.TrimSpace(voice)
	}
}

// WithRate sets the speaking rate in words per minute. Zero keeps the
// synthesizer default.
func WithRate(rate int) Option {
	return func(s *CommandSpeaker) {
		if rate > 0 {
			s.rate = rate
		}
	}
}

// CommandSpeaker speaks through an espeak-ng compatible command line.
type CommandSpeaker struct {
	binary string
	voice  string
	rate   int
}

// NewCommandSpeaker constructs a speaker using defaults.
func NewCommandSpeaker(opts ...Option) *CommandSpeaker {
	s := &CommandSpeaker{binary: "espeak-ng"}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Binary reports the configured speech binary.
func (s *CommandSpeaker) Binary() string { return s.binary }

// Speak runs the speech binary with text as its final argument.
func (s *CommandSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	args := make([]string, 0, 5)
	if s.voice != "" {
		args = append(args, "-v", s.voice)
	}
	if s.rate > 0 {
		args = append(args, "-s", strconv.Itoa(s.rate))
	}
	args = append(args, text)

	cmd := commandContext(ctx, s.binary, args...) //nolint:gosec
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var exitErr *exec.ExitError
	detail := strings.TrimSpace(string(output))
	if errors.As(err, &exitErr) && detail != "" {
		return services.Wrap(services.ErrExternalTool, "announce", "speak", detail, err)
	}
	return services.Wrap(services.ErrExternalTool, "announce", "speak", "run "+s.binary, err)
}

// Silent discards announcements. It backs disabled audio output.
type Silent struct{}

// Speak implements Speaker.
func (Silent) Speak(context.Context, string) error { return nil }
