package main

import (
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cashcue/internal/api"
	"cashcue/internal/config"
	"cashcue/internal/daemonrun"
	"cashcue/internal/logging"
)

func TestDetectLocalConfirmsAndRecordsHistory(t *testing.T) {
	env := setupCLITestEnv(t, "500")
	image := env.writeImage(t, "bill.png")

	out, _, err := runCLI(t, []string{"detect", image}, env.configPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	requireContains(t, out, "bill.png: 500 (rounds: 500 500 500")

	out, _, err = runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "bill.png")
	requireContains(t, out, "1 shown")
	requireContains(t, out, "Totals: 500 x1")

	out, _, err = runCLI(t, []string{"history", "prune", "--older-than", "1h"}, env.configPath)
	if err != nil {
		t.Fatalf("history prune: %v", err)
	}
	requireContains(t, out, "Removed 0 history entries")
}

func TestDetectLocalSkipsHistoryWhenAsked(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	image := env.writeImage(t, "note.png")

	if _, _, err := runCLI(t, []string{"detect", "--no-history", image}, env.configPath); err != nil {
		t.Fatalf("detect: %v", err)
	}
	out, _, err := runCLI(t, []string{"history"}, env.configPath)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	requireContains(t, out, "No confirmations recorded")
}

func TestDetectLocalReportsUnreadableImages(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	good := env.writeImage(t, "good.png")
	missing := filepath.Join(env.baseDir, "missing.png")

	out, _, err := runCLI(t, []string{"detect", good, missing}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "1 of 2") {
		t.Fatalf("expected partial failure error, got %v", err)
	}
	requireContains(t, out, "good.png: 100")
	requireContains(t, out, "missing.png:")
}

func TestDetectRejectsDisallowedDenomination(t *testing.T) {
	env := setupCLITestEnv(t, "1000")
	image := env.writeImage(t, "fake.png")

	out, _, err := runCLI(t, []string{"detect", image}, env.configPath)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	requireContains(t, out, "fake.png: no result")
}

func TestDaemonCommandsAgainstAPI(t *testing.T) {
	env := setupCLITestEnv(t, "200")
	cfg, _, _, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	components, err := daemonrun.Build(cfg, logging.NewNop(), daemonrun.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(components.Close)
	srv := httptest.NewServer(api.NewRouter(api.RouterOptions{
		Controller: components.Manager,
		Hub:        components.Hub,
		Logger:     logging.NewNop(),
	}))
	t.Cleanup(srv.Close)

	image := env.writeImage(t, "upload.png")
	out, _, err := runCLI(t, []string{"--api", srv.URL, "detect", "--daemon", image}, env.configPath)
	if err != nil {
		t.Fatalf("detect --daemon: %v", err)
	}
	requireContains(t, out, "upload.png: 200")

	out, _, err = runCLI(t, []string{"--api", srv.URL, "status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "Running at "+srv.URL)
	requireContains(t, out, "200 at")

	out, _, err = runCLI(t, []string{"--api", srv.URL, "clear"}, env.configPath)
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	requireContains(t, out, "Detection state cleared")

	_, _, err = runCLI(t, []string{"--api", srv.URL, "capture"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "503") {
		t.Fatalf("expected 503 from capture without camera, got %v", err)
	}
}

func TestStatusWithoutDaemon(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	requireContains(t, out, "[ERROR] Not reachable at 127.0.0.1:1")
	requireContains(t, out, "== Checks ==")
	requireContains(t, out, "Data directory:")
	requireContains(t, out, "== Dependencies ==")
}

func TestClearWithoutDaemonFails(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	_, _, err := runCLI(t, []string{"clear"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "cashcue run") {
		t.Fatalf("expected daemon hint, got %v", err)
	}
}

func TestLiveForegroundRequiresCamera(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	_, _, err := runCLI(t, []string{"live"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "no camera") {
		t.Fatalf("expected no camera error, got %v", err)
	}
}

func TestTestSpeechDryRun(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	out, _, err := runCLI(t, []string{"test-speech", "--dry-run", "-d", "500"}, env.configPath)
	if err != nil {
		t.Fatalf("test-speech: %v", err)
	}
	requireContains(t, out, "announce.enabled is false")
	requireContains(t, out, `Would speak: "500 rupees"`)
}

func TestTestNotifyUnconfigured(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	out, _, err := runCLI(t, []string{"test-notify"}, env.configPath)
	if err != nil {
		t.Fatalf("test-notify: %v", err)
	}
	requireContains(t, out, "Notifications not configured")
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t, "100")

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "Inference backend: http")

	target := filepath.Join(t.TempDir(), "nested", "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidateReportsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("[detection]\nwindow_size = 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, _, err := runCLI(t, []string{"config", "validate"}, path)
	if err == nil || !strings.Contains(err.Error(), "window_size") {
		t.Fatalf("expected window_size error, got %v", err)
	}
}

func TestConfigShowMasksSecrets(t *testing.T) {
	env := setupCLITestEnv(t, "100")
	t.Setenv("CASHCUE_INFERENCE_API_KEY", "secret-key")

	out, _, err := runCLI(t, []string{"config", "show"}, env.configPath)
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	requireContains(t, out, "[detection]")
	requireContains(t, out, redacted)
	if strings.Contains(out, "secret-key") {
		t.Fatalf("api key leaked:\n%s", out)
	}
}
