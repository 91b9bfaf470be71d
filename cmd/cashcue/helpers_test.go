package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cashcue/internal/testsupport"
)

type cliTestEnv struct {
	baseDir    string
	configPath string
	detector   *httptest.Server
}

// setupCLITestEnv writes a config pointing at a stub detector that always
// reports label with high confidence.
func setupCLITestEnv(t *testing.T, label string) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	detector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{"class": label, "confidence": 0.93}},
		})
	}))
	t.Cleanup(detector.Close)

	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
inbox_dir = ""
api_bind = "127.0.0.1:1"

[inference]
backend = "http"
url = %q

[live]
round_interval_ms = 1

[camera]
device = ""

[announce]
enabled = false
unit = "rupees"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), detector.URL)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return &cliTestEnv{baseDir: base, configPath: configPath, detector: detector}
}

func (e *cliTestEnv) writeImage(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(e.baseDir, "images", name)
	testsupport.WriteImage(t, path)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected %q in output:\n%s", needle, haystack)
	}
}
