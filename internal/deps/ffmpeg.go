package deps

import (
	"bufio"
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

var commandContext = exec.CommandContext

// FFmpegVersion runs "ffmpeg -version" and returns the first output line,
// for example "ffmpeg version 6.1.1". It returns an empty string when the
// binary cannot be executed.
func FFmpegVersion(ctx context.Context, binary string) string {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	cmd := commandContext(ctx, binary, "-hide_banner", "-version") //nolint:gosec
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return ""
	}
	scanner := bufio.NewScanner(&stdout)
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text())
	}
	return ""
}
