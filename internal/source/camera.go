package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"strings"
	"time"

	"cashcue/internal/services"
)

var commandContext = exec.CommandContext

// Source produces one encoded still image per call.
type Source interface {
	Frame(ctx context.Context) ([]byte, error)
}

// CameraOptions configures frame capture.
type CameraOptions struct {
	Device      string
	FFmpeg      string
	InputFormat string
	Timeout     time.Duration
	MaxEdge     int
}

// Camera captures single JPEG frames from a video device through ffmpeg.
type Camera struct {
	opts CameraOptions
}

// NewCamera constructs a camera source, filling unset options with defaults.
func NewCamera(opts CameraOptions) *Camera {
	if strings.TrimSpace(opts.Device) == "" {
		opts.Device = "/dev/video0"
	}
	if strings.TrimSpace(opts.FFmpeg) == "" {
		opts.FFmpeg = "ffmpeg"
	}
	if strings.TrimSpace(opts.InputFormat) == "" {
		opts.InputFormat = "v4l2"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Camera{opts: opts}
}

// Device returns the configured device path.
func (c *Camera) Device() string { return c.opts.Device }

// Available reports whether the device node exists.
func (c *Camera) Available() bool {
	_, err := os.Stat(c.opts.Device)
	return err == nil
}

// Frame grabs one frame and returns it JPEG-encoded.
func (c *Camera) Frame(ctx context.Context) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-f", c.opts.InputFormat,
		"-i", c.opts.Device,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-",
	}
	cmd := commandContext(ctx, c.opts.FFmpeg, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = c.opts.Device
		}
		return nil, services.Wrap(services.ErrSourceUnavailable, "camera", "capture frame", detail, err)
	}
	if stdout.Len() == 0 {
		return nil, services.Wrap(services.ErrSourceUnavailable, "camera", "capture frame", "ffmpeg produced no image", nil)
	}
	if c.opts.MaxEdge <= 0 {
		return stdout.Bytes(), nil
	}
	return PrepareImage(&stdout, c.opts.MaxEdge)
}

// Static serves the same prepared image for every round. Burst detection on
// an uploaded file uses it.
type Static []byte

// Frame implements Source.
func (s Static) Frame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(s) == 0 {
		return nil, services.Wrap(services.ErrSourceUnavailable, "source", "static frame", "no image data", nil)
	}
	return s, nil
}
