package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"skyreel/internal/content"
	"skyreel/internal/fileutil"
	"skyreel/internal/history"
	"skyreel/internal/logging"
	"skyreel/internal/preflight"
	"skyreel/internal/render"
	"skyreel/internal/services"
	"skyreel/internal/textutil"
)

const (
	archiveSlugLength = 48
	archivePattern    = "????-??-??_*"
)

// PostDailyReel runs the full pipeline once. The returned error is the first
// stage failure; Result.Posted is true only when the upload succeeded.
func (r *Runner) PostDailyReel(ctx context.Context, trigger history.Trigger) (Result, error) {
	if !r.initialized {
		return Result{}, services.Wrap(services.ErrConfiguration, "workflow", "post", "runner not initialized", nil)
	}

	run, err := r.store.Start(ctx, trigger)
	if err != nil {
		return Result{}, services.Wrap(services.ErrConfiguration, "workflow", "record run", "", err)
	}
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithTrigger(ctx, string(trigger))
	result := Result{RunID: run.ID}
	logger := logging.WithContext(ctx, r.logger)
	logger.Info("posting run started", logging.Trigger(string(trigger)))

	if failed := preflight.Failed(preflight.RunAll(ctx, r.cfg)); len(failed) > 0 {
		err := services.Wrap(services.ErrConfiguration, "workflow", "preflight",
			fmt.Sprintf("%s: %s", failed[0].Name, failed[0].Detail), nil)
		return r.fail(ctx, run, result, "preflight", err)
	}

	// login
	result.Stage = StageLogin
	stageCtx := services.WithStage(ctx, StageLogin)
	if err := r.account.Login(stageCtx); err != nil {
		return r.fail(stageCtx, run, result, StageLogin, err)
	}

	// content
	result.Stage = StageContent
	stageCtx = services.WithStage(ctx, StageContent)
	reel := r.content.ContentForReel(stageCtx)
	caption := r.content.GenerateCaption(stageCtx, content.ParseSource(r.cfg.Content.PreferredSource))
	if err := stageCtx.Err(); err != nil {
		return r.fail(stageCtx, run, result, StageContent, err)
	}
	result.ContentType = string(reel.Type)
	result.Title = reel.Title
	run.ContentType = result.ContentType
	run.Title = result.Title
	logging.WithContext(stageCtx, r.logger).Info("content selected",
		logging.ReelSource(string(reel.Type)),
		logging.String("caption_source", string(caption.Source)),
		logging.String("title", reel.Title),
	)

	// render
	result.Stage = StageRender
	stageCtx = services.WithStage(ctx, StageRender)
	videoPath, err := r.renderer.Generate(stageCtx, reel)
	if err != nil {
		return r.fail(stageCtx, run, result, StageRender, err)
	}
	result.VideoPath = videoPath
	run.VideoPath = videoPath

	// validate
	result.Stage = StageValidate
	stageCtx = services.WithStage(ctx, StageValidate)
	if err := r.validateVideo(stageCtx, videoPath); err != nil {
		return r.fail(stageCtx, run, result, StageValidate, err)
	}

	// upload
	result.Stage = StageUpload
	stageCtx = services.WithStage(ctx, StageUpload)
	media, err := r.account.PostReel(stageCtx, videoPath, caption.Text)
	if err != nil {
		return r.fail(stageCtx, run, result, StageUpload, err)
	}
	result.Posted = true
	result.MediaID = media.ID
	run.MediaID = media.ID

	// archive
	result.Stage = StageArchive
	stageCtx = services.WithStage(ctx, StageArchive)
	result.ArchivePath = r.archive(stageCtx, videoPath, reel.Title)

	if err := r.store.MarkPosted(ctx, run); err != nil {
		logger.Warn("failed to record posted run", logging.Error(err))
	}
	if err := r.notifier.NotifyReelPosted(ctx, result.Title, result.MediaID, result.ContentType); err != nil {
		logger.Debug("posted notification failed", logging.Error(err))
	}
	result.Stage = ""
	logger.Info("reel posted",
		logging.MediaID(result.MediaID),
		logging.ReelSource(result.ContentType),
		logging.Duration("elapsed", run.Duration()),
	)
	return result, nil
}

// validateVideo checks the encoded file size and, when ffprobe is installed,
// that it carries a video stream of the reel dimensions.
func (r *Runner) validateVideo(ctx context.Context, path string) error {
	if err := fileutil.ValidateVideoFile(path, r.cfg.Reel.MinVideoMB); err != nil {
		return err
	}
	logger := logging.WithContext(ctx, r.logger)
	probe, err := r.probe(ctx, path)
	if err != nil {
		if errors.Is(err, errProbeUnavailable) {
			logger.Debug("ffprobe unavailable; skipping stream validation", logging.Error(err))
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.WarnWithContext(logger, "ffprobe inspection failed", "probe_failed",
			logging.String("video_path", path),
			logging.Error(err),
			logging.Impact("stream validation skipped; size check passed"),
		)
		return nil
	}
	if err := probe.CheckReel(render.Width, render.Height); err != nil {
		return services.Wrap(services.ErrValidation, "workflow", "validate video", path, err)
	}
	logger.Debug("video validated",
		logging.String("video_path", path),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
	)
	return nil
}

// archive copies the posted video into the archive directory and prunes old
// copies. Failures only warn: the reel is already live.
func (r *Runner) archive(ctx context.Context, videoPath, title string) string {
	dir := r.cfg.Paths.ArchiveDir
	if dir == "" {
		return ""
	}
	logger := logging.WithContext(ctx, r.logger)
	name := fmt.Sprintf("%s_%s%s",
		r.now().In(r.cfg.Location()).Format("2006-01-02"),
		textutil.Slug(title, archiveSlugLength),
		filepath.Ext(videoPath),
	)
	dest := filepath.Join(dir, name)
	if err := fileutil.CopyFile(videoPath, dest); err != nil {
		logging.WarnWithContext(logger, "failed to archive reel", "archive_failed",
			logging.String("archive_path", dest),
			logging.Error(err),
			logging.Impact("posted reel is not kept locally"),
		)
		return ""
	}
	if keep := r.cfg.Reel.KeepArchived; keep > 0 {
		if res, err := fileutil.CleanupRecent(dir, archivePattern, keep); err != nil {
			logger.Warn("failed to prune archive", logging.Error(err))
		} else if len(res.Removed) > 0 {
			logger.Info("pruned archived reels", logging.Int("removed", len(res.Removed)))
		}
	}
	logger.Info("reel archived", logging.String("archive_path", dest))
	return dest
}

func (r *Runner) fail(ctx context.Context, run *history.Run, result Result, stage string, err error) (Result, error) {
	result.Posted = false
	result.Stage = stage
	logger := logging.WithContext(ctx, r.logger)

	attrs := []logging.Attr{
		logging.String("failed_stage", stage),
		logging.String("failure", services.FailureKind(err)),
		logging.Error(err),
		logging.Impact("no reel posted this run"),
	}
	if hint := services.FailureHint(err); hint != "" {
		attrs = append(attrs, logging.Hint(hint))
	}
	logging.ErrorWithContext(logger, "posting run failed", "run_failed", attrs...)

	// The run context may already be cancelled; history and notifications
	// still need to go out.
	recordCtx := context.WithoutCancel(ctx)
	if recordErr := r.store.MarkFailed(recordCtx, run, err); recordErr != nil {
		logger.Warn("failed to record failed run", logging.Error(recordErr))
	}
	r.notifyFailure(recordCtx, logger, stage, err)
	return result, err
}

func (r *Runner) notifyFailure(ctx context.Context, logger *slog.Logger, stage string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, services.ErrChallengeRequired) {
		if notifyErr := r.notifier.NotifyChallengeRequired(ctx, r.account.Username()); notifyErr != nil {
			logger.Debug("challenge notification failed", logging.Error(notifyErr))
		}
		return
	}
	if notifyErr := r.notifier.NotifyPostFailed(ctx, err, stage); notifyErr != nil {
		logger.Debug("failure notification failed", logging.Error(notifyErr))
	}
}
