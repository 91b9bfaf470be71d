package daemonrun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cashcue/internal/history"
	"cashcue/internal/logging"
	"cashcue/internal/testsupport"
)

func TestBuildWiresHTTPStack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"predictions": []map[string]any{{"class": "200", "confidence": 0.77}},
		})
	}))
	defer srv.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithInferenceURL(srv.URL))
	cfg.Detection.AllowList = []string{"200"}
	cfg.Camera.Device = ""

	c, err := Build(cfg, logging.NewNop(), BuildOptions{History: true, Notify: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()

	if c.Camera != nil {
		t.Fatal("camera should be nil without a device")
	}
	res, err := c.Manager.DetectImage(context.Background(), testsupport.PNG(t, 8, 8), "bill.png")
	if err != nil {
		t.Fatalf("DetectImage: %v", err)
	}
	if !res.Confirmed || res.Label != "200" {
		t.Fatalf("unexpected result %+v", res)
	}
	entries, err := c.History.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one history entry, got %d", len(entries))
	}
}

func TestBuildRejectsUnknownBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Inference.Backend = "carrier-pigeon"
	if _, err := Build(cfg, logging.NewNop(), BuildOptions{}); err == nil {
		t.Fatal("expected error for unknown backend")
	}
	if _, err := Build(nil, nil, BuildOptions{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestBuildWithCameraDevice(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Camera.Device = "/dev/video7"
	c, err := Build(cfg, logging.NewNop(), BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	defer c.Close()
	if c.Camera == nil || c.Camera.Device() != "/dev/video7" {
		t.Fatalf("expected camera for /dev/video7, got %+v", c.Camera)
	}
	if c.History != nil {
		t.Fatal("history should be off unless requested")
	}
}
