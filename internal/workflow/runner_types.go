package workflow

import (
	"context"

	"skyreel/internal/content"
	"skyreel/internal/media/ffprobe"
	"skyreel/internal/platform"
)

// Pipeline stage names used in logs, errors and history.
const (
	StageLogin    = "login"
	StageContent  = "content"
	StageRender   = "render"
	StageValidate = "validate"
	StageUpload   = "upload"
	StageArchive  = "archive"
)

// ContentSource supplies what a reel shows and the caption it is posted with.
type ContentSource interface {
	ContentForReel(ctx context.Context) content.ReelContent
	GenerateCaption(ctx context.Context, preferred content.Source) content.Caption
}

// Publisher is the logged-in platform account.
type Publisher interface {
	Login(ctx context.Context) error
	PostReel(ctx context.Context, videoPath, caption string) (platform.Media, error)
	DownloadProfilePicture(ctx context.Context, dest string) error
	Logout(ctx context.Context) error
	Username() string
}

// Renderer turns reel content into a video file.
type Renderer interface {
	Generate(ctx context.Context, reel content.ReelContent) (string, error)
	Cleanup()
}

// ProbeFunc inspects an encoded video.
type ProbeFunc func(ctx context.Context, path string) (ffprobe.Result, error)

// Result summarises one PostDailyReel call.
type Result struct {
	RunID       string
	Posted      bool
	Skipped     bool
	MediaID     string
	VideoPath   string
	ArchivePath string
	ContentType string
	Title       string
	Stage       string
}
