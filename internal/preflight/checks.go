package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"cashcue/internal/config"
	"cashcue/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckCamera verifies that device is a character device the current user
// can open for reading.
func CheckCamera(device string) Result {
	const name = "Camera"
	info, err := os.Stat(device)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (not connected)", device)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", device, err)}
	}
	if info.Mode()&os.ModeCharDevice == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not a character device)", device)}
	}
	if err := unix.Access(device, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v; is the user in the video group?)", device, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (readable)", device)}
}

// CheckInference verifies the configured backend: a TCP connection to the
// remote detector, or the presence of the local model file.
func CheckInference(ctx context.Context, cfg *config.Config) Result {
	const name = "Inference"
	switch cfg.Inference.Backend {
	case config.BackendONNX:
		if _, err := os.Stat(cfg.Inference.ModelPath); err != nil {
			return Result{Name: name, Detail: fmt.Sprintf("model %s (error: %v)", cfg.Inference.ModelPath, err)}
		}
		if lib := cfg.Inference.SharedLibrary; lib != "" {
			if _, err := os.Stat(lib); err != nil {
				return Result{Name: name, Detail: fmt.Sprintf("onnxruntime library %s (error: %v)", lib, err)}
			}
		}
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("onnx model %s", cfg.Inference.ModelPath)}
	default:
		return CheckEndpoint(ctx, name, cfg.Inference.URL)
	}
}

// CheckEndpoint dials the host of rawURL with a short timeout.
func CheckEndpoint(ctx context.Context, name, rawURL string) Result {
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url %q", rawURL)}
	}
	host := parsed.Host
	if parsed.Port() == "" {
		port := "80"
		if parsed.Scheme == "https" {
			port = "443"
		}
		host = net.JoinHostPort(parsed.Hostname(), port)
	}

	dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	var d net.Dialer
	conn, err := d.DialContext(dialCtx, "tcp", host)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s unreachable (%s)", rawURL, summarizeDialError(err))}
	}
	_ = conn.Close()
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", rawURL)}
}

// CheckSystemDeps evaluates all external binaries for the given config.
// Both the daemon and the CLI status command use this to avoid duplicating
// the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "FFmpeg",
			Command:     cfg.Camera.FFmpegBinary,
			Description: "Required for camera capture",
			Optional:    cfg.Camera.Device == "",
		},
	}
	requirements = append(requirements, deps.Requirement{
		Name:        "Speech",
		Command:     cfg.Announce.Command,
		Description: "Speaks confirmed denominations",
		Optional:    !cfg.Announce.Enabled,
	})
	return deps.CheckBinaries(requirements)
}

func summarizeDialError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timed out"
	}
	return err.Error()
}
