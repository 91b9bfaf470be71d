package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"testing"
	"time"

	"cashcue/internal/services"
)

func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	switch os.Getenv("CAMERA_HELPER_MODE") {
	case "fail":
		fmt.Fprint(os.Stderr, "/dev/video9: No such file or directory")
		os.Exit(1)
	case "empty":
		os.Exit(0)
	default:
		fmt.Fprint(os.Stdout, "frame-bytes")
		os.Exit(0)
	}
}

func stubFFmpeg(t *testing.T, mode string, captured *[]string) {
	t.Helper()
	original := commandContext
	commandContext = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		if captured != nil {
			*captured = append([]string{name}, args...)
		}
		cmd := exec.CommandContext(ctx, os.Args[0], "-test.run=TestHelperProcess")
		cmd.Env = append(os.Environ(), "GO_WANT_HELPER_PROCESS=1", "CAMERA_HELPER_MODE="+mode)
		return cmd
	}
	t.Cleanup(func() {
		commandContext = original
	})
}

func TestCameraFrame(t *testing.T) {
	var captured []string
	stubFFmpeg(t, "success", &captured)

	cam := NewCamera(CameraOptions{Device: "/dev/video2", Timeout: time.Second})
	data, err := cam.Frame(context.Background())
	if err != nil {
		t.Fatalf("Frame returned error: %v", err)
	}
	if string(data) != "frame-bytes" {
		t.Fatalf("frame = %q", data)
	}
	if captured[0] != "ffmpeg" {
		t.Fatalf("binary = %q", captured[0])
	}
	if idx := indexOf(captured, "-i"); idx < 0 || captured[idx+1] != "/dev/video2" {
		t.Fatalf("args missing device: %v", captured)
	}
	if idx := indexOf(captured, "-frames:v"); idx < 0 || captured[idx+1] != "1" {
		t.Fatalf("args missing single frame: %v", captured)
	}
}

func TestCameraFrameFailureIsSourceUnavailable(t *testing.T) {
	for _, mode := range []string{"fail", "empty"} {
		t.Run(mode, func(t *testing.T) {
			stubFFmpeg(t, mode, nil)
			_, err := NewCamera(CameraOptions{}).Frame(context.Background())
			if !errors.Is(err, services.ErrSourceUnavailable) {
				t.Fatalf("expected ErrSourceUnavailable, got %v", err)
			}
		})
	}
}

func TestStaticFrame(t *testing.T) {
	data, err := Static("img").Frame(context.Background())
	if err != nil || string(data) != "img" {
		t.Fatalf("Frame() = %q, %v", data, err)
	}
	if _, err := Static(nil).Frame(context.Background()); !errors.Is(err, services.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Static("img").Frame(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func indexOf(args []string, want string) int {
	for i, arg := range args {
		if arg == want {
			return i
		}
	}
	return -1
}
