package preflight

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"

	"cashcue/internal/config"
	"cashcue/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckCamera_Missing(t *testing.T) {
	result := CheckCamera(filepath.Join(t.TempDir(), "video9"))
	if result.Passed {
		t.Fatal("expected failure for missing device")
	}
}

func TestCheckCamera_RegularFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckCamera(f); result.Passed {
		t.Fatal("regular file must not pass as a camera")
	}
}

func TestCheckCamera_CharDevice(t *testing.T) {
	if _, err := os.Stat("/dev/null"); err != nil {
		t.Skip("no /dev/null")
	}
	if result := CheckCamera("/dev/null"); !result.Passed {
		t.Fatalf("expected /dev/null to pass as a readable char device: %s", result.Detail)
	}
}

func TestCheckEndpoint(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	ok := CheckEndpoint(context.Background(), "Inference", "http://"+ln.Addr().String()+"/predict")
	if !ok.Passed {
		t.Fatalf("expected reachable endpoint: %s", ok.Detail)
	}
	addr := ln.Addr().String()
	ln.Close()
	down := CheckEndpoint(context.Background(), "Inference", "http://"+addr+"/predict")
	if down.Passed {
		t.Fatal("expected closed port to fail")
	}
	if bad := CheckEndpoint(context.Background(), "Inference", "::not a url"); bad.Passed {
		t.Fatal("expected invalid url to fail")
	}
}

func TestCheckInference_ONNXMissingModel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inference.Backend = config.BackendONNX
	cfg.Inference.ModelPath = filepath.Join(t.TempDir(), "model.onnx")
	if result := CheckInference(context.Background(), cfg); result.Passed {
		t.Fatal("expected missing model to fail")
	}
	if err := os.WriteFile(cfg.Inference.ModelPath, []byte("onnx"), 0o644); err != nil {
		t.Fatal(err)
	}
	if result := CheckInference(context.Background(), cfg); !result.Passed {
		t.Fatalf("expected model present to pass: %s", result.Detail)
	}
}

func TestRunAllCoversConfiguredFeatures(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithInbox())
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	cfg.Camera.Device = ""
	results := RunAll(context.Background(), cfg)
	names := map[string]bool{}
	for _, r := range results {
		names[r.Name] = true
	}
	for _, want := range []string{"Data directory", "Log directory", "Inbox directory", "Inference"} {
		if !names[want] {
			t.Fatalf("missing check %q in %v", want, results)
		}
	}
	if names["Camera"] {
		t.Fatal("camera check should be skipped without a device")
	}
	if RunAll(context.Background(), nil) != nil {
		t.Fatal("nil config should yield no results")
	}
}

func TestCheckSystemDepsOptionality(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Camera.FFmpegBinary = "definitely-missing-ffmpeg"
	cfg.Announce.Command = "definitely-missing-espeak"
	cfg.Announce.Enabled = false

	statuses := CheckSystemDeps(cfg)
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Optional {
		t.Fatal("ffmpeg is required when a camera device is configured")
	}
	if !statuses[1].Optional {
		t.Fatal("speech is optional when announcements are disabled")
	}
}
