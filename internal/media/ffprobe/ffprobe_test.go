package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleOutput = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1080, "height": 1920, "pix_fmt": "yuv420p", "avg_frame_rate": "30/1"}
  ],
  "format": {"filename": "reel.mp4", "nb_streams": 1, "duration": "15.000000", "size": "412345", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func TestParseAndCheckReel(t *testing.T) {
	result, err := Parse([]byte(sampleOutput))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 15 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	video, _ := result.VideoStream()
	if video.FramesPerSecond() != 30 {
		t.Fatalf("unexpected fps: %v", video.FramesPerSecond())
	}
	if err := result.CheckReel(1080, 1920); err != nil {
		t.Fatalf("CheckReel: %v", err)
	}
	if err := result.CheckReel(720, 1280); err == nil {
		t.Fatal("expected dimension mismatch")
	}
}

func TestCheckReelRejectsMissingVideo(t *testing.T) {
	result := Result{Streams: []Stream{{CodecType: "audio"}}, Format: Format{Duration: "15"}}
	if err := result.CheckReel(0, 0); err == nil || !strings.Contains(err.Error(), "no video stream") {
		t.Fatalf("expected missing video error, got %v", err)
	}
	result = Result{Streams: []Stream{{CodecType: "video"}}, Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected NaN duration, got %v", result.DurationSeconds())
	}
	if err := result.CheckReel(0, 0); err == nil {
		t.Fatal("expected invalid duration error")
	}
}

func TestFramesPerSecondMalformed(t *testing.T) {
	for _, rate := range []string{"", "0/0", "x/1"} {
		if got := (Stream{FrameRate: rate}).FramesPerSecond(); got != 0 {
			t.Fatalf("rate %q: expected 0, got %v", rate, got)
		}
	}
}

func TestInspectUsesBinary(t *testing.T) {
	dir := t.TempDir()
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat <<'JSON'\n" + sampleOutput + "\nJSON\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	result, err := Inspect(context.Background(), stub, filepath.Join(dir, "reel.mp4"))
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if result.Format.Filename != "reel.mp4" {
		t.Fatalf("unexpected filename %q", result.Format.Filename)
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
