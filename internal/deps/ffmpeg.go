package deps

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// FFmpegProbeTimeout bounds the `ffmpeg -version` availability check.
const FFmpegProbeTimeout = 2 * time.Second

// ProbeFFmpeg runs `<binary> -version` and returns the first line of its
// output. Callers re-probe before every encode so an ffmpeg installed or
// removed while the scheduler is running is noticed on the next run.
func ProbeFFmpeg(ctx context.Context, binary string) (string, error) {
	binary = defaultString(binary, "ffmpeg")
	probeCtx, cancel := context.WithTimeout(ctx, FFmpegProbeTimeout)
	defer cancel()

	var out bytes.Buffer
	cmd := exec.CommandContext(probeCtx, binary, "-version")
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if probeCtx.Err() != nil && ctx.Err() == nil {
			return "", fmt.Errorf("%s -version: timed out after %s", binary, FFmpegProbeTimeout)
		}
		return "", fmt.Errorf("%s -version: %w", binary, err)
	}
	line, _, _ := strings.Cut(strings.TrimSpace(out.String()), "\n")
	return strings.TrimSpace(line), nil
}
