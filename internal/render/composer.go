package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"skyreel/internal/config"
	"skyreel/internal/content"
	"skyreel/internal/fileutil"
	"skyreel/internal/logging"
	"skyreel/internal/retry"
	"skyreel/internal/services"
)

// Reel geometry. Every frame is a 1080x1920 portrait canvas.
const (
	Width           = 1080
	Height          = 1920
	DefaultFPS      = 30
	DefaultDuration = 15 * time.Second

	profileSize     = 400
	profileTop      = 200
	watermarkSize   = 150
	watermarkMargin = 30
	thumbnailSize   = 600
	thumbnailTop    = 700
	textTop         = 1300
	textLineStep    = 50
	textMaxLines    = 3
	textMargin      = 50
	textFontSize    = 40

	frameQuality         = 95
	downloadChunkSize    = 8192
	imageDownloadTimeout = 15 * time.Second

	contentImageName = "content_image.jpg"
	frameName        = "reel_frame.jpg"
	defaultFrameText = "Space Update"
)

var (
	logoFallbackBackground = color.NRGBA{R: 0x0a, G: 0x0a, B: 0x1a, A: 0xff}
	placeholderColor       = color.NRGBA{R: 0x1a, G: 0x1a, B: 0x2e, A: 0xff}
)

// Options configures a Composer.
type Options struct {
	OutputDir        string
	Duration         time.Duration
	FPS              int
	ProfilePicPath   string
	UseLogo          bool
	LogoPath         string
	FontPaths        []string
	KeepRecentFrames int
	Encoders         []Encoder
	HTTPClient       *http.Client
	Logger           *slog.Logger
}

// OptionsFromConfig builds composer options with the default encoder chain:
// ffmpeg first, then the pure-Go H.264 writer.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		OutputDir:        cfg.Paths.OutputDir,
		Duration:         cfg.ReelDuration(),
		FPS:              cfg.Reel.FPS,
		ProfilePicPath:   cfg.Reel.ProfilePicPath,
		UseLogo:          cfg.Reel.UseLogo,
		LogoPath:         cfg.Reel.LogoPath,
		FontPaths:        cfg.Reel.FontPaths,
		KeepRecentFrames: cfg.Reel.KeepRecentFrames,
		Encoders: []Encoder{
			FFmpegEncoder{Binary: cfg.Reel.FFmpegBinary, Timeout: cfg.EncodeTimeout()},
			H264Encoder{},
		},
	}
}

// Composer renders reel frames and encodes them into videos.
type Composer struct {
	opts   Options
	client *http.Client
	logger *slog.Logger

	faceOnce sync.Once
	face     font.Face
	faceErr  error
}

// NewComposer constructs a composer.
func NewComposer(opts Options) *Composer {
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.KeepRecentFrames <= 0 {
		opts.KeepRecentFrames = 2
	}
	if len(opts.Encoders) == 0 {
		opts.Encoders = []Encoder{FFmpegEncoder{}, H264Encoder{}}
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: imageDownloadTimeout}
	}
	return &Composer{
		opts:   opts,
		client: client,
		logger: logging.NewComponentLogger(opts.Logger, "render"),
	}
}

// logoMode reports whether frames use the logo instead of the profile picture.
func (c *Composer) logoMode() bool {
	if !c.opts.UseLogo || c.opts.LogoPath == "" {
		return false
	}
	_, err := os.Stat(c.opts.LogoPath)
	return err == nil
}

func (c *Composer) textFace() (font.Face, error) {
	c.faceOnce.Do(func() {
		var source string
		c.face, source, c.faceErr = LoadFace(c.opts.FontPaths, textFontSize)
		if c.faceErr == nil {
			c.logger.Debug("font loaded", logging.String("source", source))
		}
	})
	return c.face, c.faceErr
}

// RenderFrame draws one frame. contentImage may be nil.
func (c *Composer) RenderFrame(reel content.ReelContent, contentImage image.Image) (image.Image, error) {
	face, err := c.textFace()
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "render", "load font", "", err)
	}

	dc := gg.NewContext(Width, Height)
	if c.logoMode() {
		c.drawLogo(dc)
	} else {
		dc.SetColor(color.Black)
		dc.Clear()
		c.drawProfile(dc)
	}

	if contentImage != nil {
		thumb := imaging.Fit(contentImage, thumbnailSize, thumbnailSize, imaging.Lanczos)
		dc.DrawImage(thumb, (Width-thumb.Bounds().Dx())/2, thumbnailTop)
	}

	text := strings.TrimSpace(reel.Text)
	if text == "" {
		text = defaultFrameText
	}
	dc.SetFontFace(face)
	dc.SetColor(color.White)
	lines := WrapText(text, float64(Width-2*textMargin), func(s string) float64 {
		w, _ := dc.MeasureString(s)
		return w
	})
	for i, line := range lines {
		if i == textMaxLines {
			break
		}
		dc.DrawStringAnchored(line, Width/2, float64(textTop+i*textLineStep), 0.5, 1)
	}
	return dc.Image(), nil
}

func (c *Composer) drawLogo(dc *gg.Context) {
	logo, err := imaging.Open(c.opts.LogoPath)
	if err != nil {
		logging.WarnWithContext(c.logger, "logo unreadable; using plain background", "logo_unavailable",
			logging.String("logo_path", c.opts.LogoPath),
			logging.Error(err),
		)
		dc.SetColor(logoFallbackBackground)
		dc.Clear()
		return
	}
	dc.DrawImage(imaging.Resize(logo, Width, Height, imaging.Lanczos), 0, 0)

	mark := imaging.Fit(logo, watermarkSize, watermarkSize, imaging.Lanczos)
	dc.DrawImage(mark, Width-mark.Bounds().Dx()-watermarkMargin, watermarkMargin)
}

func (c *Composer) drawProfile(dc *gg.Context) {
	if c.opts.ProfilePicPath == "" {
		return
	}
	picture, err := imaging.Open(c.opts.ProfilePicPath, imaging.AutoOrientation(true))
	if err != nil {
		logging.WarnWithContext(c.logger, "profile picture unreadable", "profile_picture_unavailable",
			logging.Path(c.opts.ProfilePicPath),
			logging.Error(err),
			logging.Impact("frame rendered without the profile picture"),
		)
		return
	}
	resized := imaging.Resize(picture, profileSize, profileSize, imaging.Lanczos)
	x := (Width - profileSize) / 2
	dc.Push()
	dc.DrawCircle(float64(x)+profileSize/2, float64(profileTop)+profileSize/2, profileSize/2)
	dc.Clip()
	dc.DrawImage(resized, x, profileTop)
	dc.ResetClip()
	dc.Pop()
}

// Generate renders the frame for reel, encodes it and returns the video
// path. Encoders are tried in order; an error is returned only when every
// one of them fails.
func (c *Composer) Generate(ctx context.Context, reel content.ReelContent) (string, error) {
	if err := os.MkdirAll(c.opts.OutputDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "render", "create output dir", c.opts.OutputDir, err)
	}

	frame, err := c.Frame(ctx, reel)
	if err != nil {
		return "", err
	}
	framePath := filepath.Join(c.opts.OutputDir, frameName)
	if err := imaging.Save(frame, framePath, imaging.JPEGQuality(frameQuality)); err != nil {
		return "", services.Wrap(services.ErrExternalTool, "render", "save frame", framePath, err)
	}

	path, err := c.Encode(ctx, framePath)
	if err != nil {
		return "", err
	}
	c.cleanupFrames()
	return path, nil
}

// Frame downloads the content image, when there is one, and renders the
// frame. A failed download only drops the thumbnail.
func (c *Composer) Frame(ctx context.Context, reel content.ReelContent) (image.Image, error) {
	var contentImage image.Image
	if reel.ImageURL != "" {
		img, err := c.fetchContentImage(ctx, reel.ImageURL)
		if err != nil {
			logging.WarnWithContext(c.logger, "content image unavailable", "content_image_failed",
				logging.String("image_url", reel.ImageURL),
				logging.Error(err),
				logging.Impact("frame rendered without the content image"),
			)
		} else {
			contentImage = img
		}
	}
	return c.RenderFrame(reel, contentImage)
}

// Encode runs the encoder chain over an existing frame.
func (c *Composer) Encode(ctx context.Context, framePath string) (string, error) {
	c.removeStaleVideos()
	req := EncodeRequest{
		FramePath: framePath,
		OutputDir: c.opts.OutputDir,
		Duration:  c.opts.Duration,
		FPS:       c.opts.FPS,
		Width:     Width,
		Height:    Height,
	}

	var failures []error
	for _, encoder := range c.opts.Encoders {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := encoder.Available(ctx); err != nil {
			c.logger.Info("encoder unavailable", logging.Encoder(encoder.Name()), logging.Error(err))
			failures = append(failures, fmt.Errorf("%s: %w", encoder.Name(), err))
			continue
		}
		c.logger.Info("encoding reel", logging.Encoder(encoder.Name()))
		started := time.Now()
		path, err := encoder.Encode(ctx, req)
		if err != nil {
			logging.WarnWithContext(c.logger, "encoder failed", "encode_failed",
				logging.Encoder(encoder.Name()),
				logging.Error(err),
				logging.Impact("next encoder is tried"),
			)
			failures = append(failures, fmt.Errorf("%s: %w", encoder.Name(), err))
			continue
		}
		c.logger.Info("video created",
			logging.Encoder(encoder.Name()),
			logging.Path(path),
			logging.Float64("size_mb", fileutil.SizeMB(path)),
			logging.Duration("elapsed", time.Since(started).Round(time.Millisecond)),
		)
		return path, nil
	}
	return "", services.Wrap(services.ErrExternalTool, "render", "encode", "", errors.Join(append([]error{errNoEncoder}, failures...)...))
}

func (c *Composer) removeStaleVideos() {
	path := filepath.Join(c.opts.OutputDir, videoOutputName)
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		c.logger.Debug("failed to remove stale video", logging.Path(path), logging.Error(err))
	}
}

// Cleanup prunes rendered frame artifacts, keeping the most recent ones.
func (c *Composer) Cleanup() {
	c.cleanupFrames()
}

func (c *Composer) cleanupFrames() {
	result, err := fileutil.CleanupRecent(c.opts.OutputDir, "*.jpg", c.opts.KeepRecentFrames)
	if err != nil {
		c.logger.Warn("frame cleanup failed", logging.Error(err))
		return
	}
	if len(result.Removed) > 0 {
		c.logger.Debug("frame cleanup", logging.Int("removed", len(result.Removed)), logging.Int("kept", len(result.Kept)))
	}
}

func (c *Composer) fetchContentImage(ctx context.Context, url string) (image.Image, error) {
	dest := filepath.Join(c.opts.OutputDir, contentImageName)
	policy := retry.Policy{Attempts: 2, Delay: time.Second, Operation: "download content image", Logger: c.logger}
	if err := retry.Do(ctx, policy, func(ctx context.Context) error {
		return c.download(ctx, url, dest)
	}); err != nil {
		return nil, err
	}
	img, err := imaging.Open(dest, imaging.AutoOrientation(true))
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "render", "decode content image", url, err)
	}
	return img, nil
}

func (c *Composer) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "render", "download", url, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &retry.StatusError{StatusCode: resp.StatusCode, URL: url}
	}
	file, err := os.Create(dest)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "render", "download", dest, err)
	}
	if _, err := io.CopyBuffer(file, resp.Body, make([]byte, downloadChunkSize)); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// PlaceholderProfile writes a plain 400x400 square used when no profile
// picture can be downloaded.
func PlaceholderProfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	img := imaging.New(profileSize, profileSize, placeholderColor)
	return imaging.Save(img, path, imaging.JPEGQuality(frameQuality))
}
