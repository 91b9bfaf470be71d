package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cashcue/internal/api"
	"cashcue/internal/config"
	"cashcue/internal/daemon"
	"cashcue/internal/history"
	"cashcue/internal/logging"
	"cashcue/internal/session"
	"cashcue/internal/testsupport"
)

type stubGateway struct{}

func (stubGateway) Infer(context.Context, []byte) ([]map[string]any, error) {
	return []map[string]any{{"class": "100", "confidence": 0.8}}, nil
}

func newDaemon(t *testing.T, cfg *config.Config) *daemon.Daemon {
	t.Helper()
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	mgr, err := session.NewManager(session.Options{
		Config:  cfg,
		Gateway: stubGateway{},
		History: store,
		Logger:  logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	d, err := daemon.New(cfg, mgr, store, logging.NewNop(), filepath.Join(cfg.Paths.LogDir, "cashcue.log"))
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func testConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Camera.Device = ""
	cfg.Detection.AllowList = []string{"100"}
	return cfg
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	d := newDaemon(t, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	status := d.Status()
	if !status.Running || status.APIAddress == "" {
		t.Fatalf("expected running daemon with api, got %+v", status)
	}
	if status.HistoryPath != cfg.HistoryPath() {
		t.Fatalf("unexpected history path %q", status.HistoryPath)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}

	client := api.NewClient(d.APIAddress(), "")
	st, err := client.Status(ctx)
	if err != nil {
		t.Fatalf("api status: %v", err)
	}
	if st.Live {
		t.Fatal("live should not be running without a camera")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
}

func TestDaemonSingleInstance(t *testing.T) {
	cfg := testConfig(t)
	first := newDaemon(t, cfg)
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first start: %v", err)
	}

	second := newDaemon(t, cfg)
	if err := second.Start(context.Background()); err == nil {
		t.Fatal("expected lock contention error")
	}

	first.Stop()
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("start after release: %v", err)
	}
}

func TestDaemonIdentifiesInboxImages(t *testing.T) {
	cfg := testConfig(t, testsupport.WithInbox())
	d := newDaemon(t, cfg)
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	testsupport.WriteImage(t, filepath.Join(cfg.Paths.InboxDir, "bill.png"))

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	processed := filepath.Join(cfg.Paths.InboxDir, "processed", "bill.png")
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(processed); err == nil {
			break
		}
		time.Sleep(25 * time.Millisecond)
	}
	if _, err := os.Stat(processed); err != nil {
		t.Fatalf("inbox image was not processed: %v", err)
	}
	entries, err := store.List(context.Background(), history.ListOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Source != "bill.png" || entries[0].Denomination != "100" {
		t.Fatalf("unexpected history %+v", entries)
	}
}

func TestNewRequiresManager(t *testing.T) {
	if _, err := daemon.New(testConfig(t), nil, nil, nil, ""); err == nil {
		t.Fatal("expected error without manager")
	}
}
