package testsupport

import (
	"path/filepath"
	"testing"

	"cashcue/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.InboxDir = ""
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Announce.Enabled = false
	cfgVal.Live.RoundIntervalMS = 1

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithInbox enables the inbox under the test base directory.
func WithInbox() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.InboxDir = filepath.Join(b.baseDir, "inbox")
	}
}

// WithInferenceURL points the HTTP gateway at url.
func WithInferenceURL(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Inference.Backend = config.BackendHTTP
		b.cfg.Inference.URL = url
	}
}

// WithWindow overrides the confirmation window size.
func WithWindow(k int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Detection.WindowSize = k
	}
}
