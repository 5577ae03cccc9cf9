package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"skyreel/internal/deps"
	"skyreel/internal/services"
)

const (
	videoOutputName      = "reel.mp4"
	defaultEncodeTimeout = 60 * time.Second
)

// EncodeRequest describes one still-frame video to produce.
type EncodeRequest struct {
	FramePath string
	OutputDir string
	Duration  time.Duration
	FPS       int
	Width     int
	Height    int
}

func (r EncodeRequest) withDefaults() EncodeRequest {
	if r.FPS <= 0 {
		r.FPS = DefaultFPS
	}
	if r.Duration <= 0 {
		r.Duration = DefaultDuration
	}
	if r.Width <= 0 || r.Height <= 0 {
		r.Width, r.Height = Width, Height
	}
	return r
}

// Encoder turns a still frame into a video file.
type Encoder interface {
	Name() string
	// Available is checked before every encode.
	Available(ctx context.Context) error
	// Encode writes the video and returns its path.
	Encode(ctx context.Context, req EncodeRequest) (string, error)
}

// FFmpegEncoder shells out to ffmpeg and produces an H.264 MP4.
type FFmpegEncoder struct {
	Binary  string
	Timeout time.Duration
}

func (e FFmpegEncoder) Name() string { return "ffmpeg" }

func (e FFmpegEncoder) binary() string {
	if strings.TrimSpace(e.Binary) == "" {
		return "ffmpeg"
	}
	return e.Binary
}

func (e FFmpegEncoder) Available(ctx context.Context) error {
	_, err := deps.ProbeFFmpeg(ctx, e.binary())
	return err
}

// Args returns the ffmpeg command line for req.
func (e FFmpegEncoder) Args(req EncodeRequest, output string) []string {
	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2",
		req.Width, req.Height, req.Width, req.Height)
	return []string{
		"-y",
		"-loop", "1",
		"-i", req.FramePath,
		"-t", strconv.FormatFloat(req.Duration.Seconds(), 'f', -1, 64),
		"-vf", scale,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(req.FPS),
		"-preset", "medium",
		output,
	}
}

func (e FFmpegEncoder) Encode(ctx context.Context, req EncodeRequest) (string, error) {
	req = req.withDefaults()
	timeout := e.Timeout
	if timeout <= 0 {
		timeout = defaultEncodeTimeout
	}
	encodeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	output := filepath.Join(req.OutputDir, videoOutputName)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(encodeCtx, e.binary(), e.Args(req, output)...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		_ = os.Remove(output)
		if encodeCtx.Err() != nil && ctx.Err() == nil {
			return "", services.Wrap(services.ErrTimeout, "render", "ffmpeg encode", fmt.Sprintf("timed out after %s", timeout), err)
		}
		return "", services.Wrap(services.ErrExternalTool, "render", "ffmpeg encode", tail(stderr.String(), 400), err)
	}
	return output, nil
}

// H264Encoder writes an H.264 MP4 in pure Go. The frame is stored once as
// an uncompressed intra picture and held by skipped P pictures, so it needs
// no external tools and serves as the fallback when ffmpeg is missing.
type H264Encoder struct{}

func (e H264Encoder) Name() string { return "h264" }

func (e H264Encoder) Available(context.Context) error { return nil }

func (e H264Encoder) Encode(ctx context.Context, req EncodeRequest) (path string, err error) {
	req = req.withDefaults()
	frame, err := imaging.Open(req.FramePath)
	if err != nil {
		return "", services.Wrap(services.ErrNotFound, "render", "h264 encode", "open frame", err)
	}
	if b := frame.Bounds(); b.Dx() != req.Width || b.Dy() != req.Height {
		frame = imaging.Fill(frame, req.Width, req.Height, imaging.Center, imaging.Lanczos)
	}
	stream := newStillStream(frame)

	frames := int(req.Duration.Seconds() * float64(req.FPS))
	if frames < 1 {
		frames = 1
	}
	sizes := make([]uint32, frames)
	sizes[0] = uint32(avcLengthSize + len(stream.idr))
	for i := 1; i < frames; i++ {
		sizes[i] = uint32(avcLengthSize + len(stream.predicted(i)))
	}

	output := filepath.Join(req.OutputDir, videoOutputName)
	file, err := os.Create(output)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "h264 encode", "create mp4", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && err == nil {
			err = services.Wrap(services.ErrExternalTool, "render", "h264 encode", "finalize mp4", closeErr)
		}
		if err != nil {
			_ = os.Remove(output)
			path = ""
		}
	}()

	track := mp4Track{
		width:       stream.width,
		height:      stream.height,
		fps:         req.FPS,
		sps:         stream.sps,
		pps:         stream.pps,
		sampleSizes: sizes,
	}
	err = writeMP4(file, track, func(w io.Writer) error {
		if err := writeLengthPrefixed(w, stream.idr); err != nil {
			return err
		}
		for i := 1; i < frames; i++ {
			if i%req.FPS == 0 {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
			}
			if err := writeLengthPrefixed(w, stream.predicted(i)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", services.Wrap(services.ErrExternalTool, "render", "h264 encode", "write mp4", err)
	}
	return output, nil
}

func tail(text string, limit int) string {
	text = strings.TrimSpace(text)
	if len(text) <= limit {
		return text
	}
	return "..." + text[len(text)-limit:]
}

// errNoEncoder is wrapped when every encoder was unavailable or failed.
var errNoEncoder = errors.New("could not create video file with any available encoder")
