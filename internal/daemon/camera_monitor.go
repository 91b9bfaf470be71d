package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilebones/go-udev/netlink"

	"cashcue/internal/logging"
	"cashcue/internal/services"
)

// sourceEvents receives camera attach and detach notifications.
type sourceEvents interface {
	HandleSourceLost(err error)
	HandleSourceRestored()
}

// cameraMonitor listens for udev netlink events on the video4linux
// subsystem so live detection stops when the camera is unplugged and, with
// live.auto_start, resumes when it returns.
type cameraMonitor struct {
	logger  *slog.Logger
	handler sourceEvents
	device  string
	names   map[string]struct{}

	mu      sync.Mutex
	conn    *netlink.UEventConn
	quit    chan struct{}
	running bool
}

func newCameraMonitor(device string, handler sourceEvents, logger *slog.Logger) *cameraMonitor {
	device = strings.TrimSpace(device)
	if device == "" {
		return nil
	}
	names := map[string]struct{}{device: {}}
	// Persistent paths such as /dev/v4l/by-id/... are symlinks; uevents
	// report the kernel name.
	if resolved, err := filepath.EvalSymlinks(device); err == nil {
		names[resolved] = struct{}{}
	}
	return &cameraMonitor{
		logger:  logging.NewComponentLogger(logger, "camera-monitor"),
		handler: handler,
		device:  device,
		names:   names,
	}
}

// Start begins listening for udev netlink events.
func (m *cameraMonitor) Start(ctx context.Context) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}

	conn := new(netlink.UEventConn)
	if err := conn.Connect(netlink.UdevEvent); err != nil {
		m.logger.Warn("failed to connect to netlink socket; camera hotplug will not be tracked",
			logging.Error(err),
			logging.String(logging.FieldEventType, "netlink_connect_failed"),
			logging.String(logging.FieldErrorHint, "ensure the daemon has permission to access netlink sockets"),
			logging.String(logging.FieldImpact, "unplugging the camera is only noticed on the next failed frame"),
		)
		return nil
	}

	m.conn = conn
	m.quit = make(chan struct{})
	m.running = true
	quit := m.quit
	go m.monitorLoop(ctx, conn, quit)

	m.logger.Info("camera monitor started",
		logging.String(logging.FieldEventType, "camera_monitor_started"),
		logging.String("device", m.device),
	)
	return nil
}

// Stop shuts down the monitor.
func (m *cameraMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	if m.quit != nil {
		close(m.quit)
		m.quit = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.running = false
	m.logger.Info("camera monitor stopped", logging.String(logging.FieldEventType, "camera_monitor_stopped"))
}

// Running reports whether the monitor is active.
func (m *cameraMonitor) Running() bool {
	if m == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *cameraMonitor) monitorLoop(ctx context.Context, conn *netlink.UEventConn, quit <-chan struct{}) {
	queue := make(chan netlink.UEvent)
	errs := make(chan error)
	monitorQuit := conn.Monitor(queue, errs, m.buildMatcher())

	for {
		select {
		case <-ctx.Done():
			close(monitorQuit)
			return
		case <-quit:
			close(monitorQuit)
			return
		case uevent := <-queue:
			m.handleEvent(uevent)
		case err := <-errs:
			m.logger.Warn("netlink monitor error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "netlink_monitor_error"),
				logging.String(logging.FieldErrorHint, "check kernel netlink subsystem"),
				logging.String(logging.FieldImpact, "camera hotplug may be missed"),
			)
		}
	}
}

// buildMatcher matches SUBSYSTEM=video4linux with ACTION=add|remove.
func (m *cameraMonitor) buildMatcher() netlink.Matcher {
	action := "add|remove"
	rules := &netlink.RuleDefinitions{}
	rules.AddRule(netlink.RuleDefinition{
		Action: &action,
		Env: map[string]string{
			"SUBSYSTEM": "video4linux",
		},
	})
	return rules
}

func (m *cameraMonitor) handleEvent(uevent netlink.UEvent) {
	devname := extractDeviceName(uevent)
	if _, ok := m.names[devname]; !ok {
		m.logger.Debug("ignoring event for non-configured device",
			logging.String("device", devname),
			logging.String("configured_device", m.device),
		)
		return
	}
	if m.handler == nil {
		return
	}
	switch strings.ToLower(string(uevent.Action)) {
	case "remove":
		m.logger.Info("camera removed",
			logging.String(logging.FieldEventType, "camera_removed"),
			logging.String("device", devname),
		)
		m.handler.HandleSourceLost(services.Wrap(services.ErrSourceUnavailable, "camera", "hotplug",
			fmt.Sprintf("%s was disconnected", m.device), nil))
	case "add":
		m.logger.Info("camera attached",
			logging.String(logging.FieldEventType, "camera_attached"),
			logging.String("device", devname),
		)
		m.handler.HandleSourceRestored()
	}
}

// extractDeviceName gets the device path from a uevent.
func extractDeviceName(uevent netlink.UEvent) string {
	if devname := uevent.Env["DEVNAME"]; devname != "" {
		if !strings.HasPrefix(devname, "/") {
			devname = "/dev/" + devname
		}
		return devname
	}
	devpath := uevent.Env["DEVPATH"]
	if devpath == "" {
		return ""
	}
	parts := strings.Split(devpath, "/")
	return "/dev/" + parts[len(parts)-1]
}
