package workflow_test

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"skyreel/internal/config"
	"skyreel/internal/content"
	"skyreel/internal/history"
	"skyreel/internal/logging"
	"skyreel/internal/media/ffprobe"
	"skyreel/internal/platform"
	"skyreel/internal/services"
	"skyreel/internal/testsupport"
	"skyreel/internal/workflow"
)

type fakeContent struct {
	reel      content.ReelContent
	caption   content.Caption
	preferred []content.Source
}

func (f *fakeContent) ContentForReel(context.Context) content.ReelContent { return f.reel }

func (f *fakeContent) GenerateCaption(_ context.Context, preferred content.Source) content.Caption {
	f.preferred = append(f.preferred, preferred)
	return f.caption
}

type fakePublisher struct {
	mu          sync.Mutex
	loginErr    error
	uploadErr   error
	downloadErr error
	logins      int
	uploads     []string
	captions    []string
	downloads   int
	logouts     int
}

func (f *fakePublisher) Login(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginErr
}

func (f *fakePublisher) PostReel(_ context.Context, path, caption string) (platform.Media, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, path)
	f.captions = append(f.captions, caption)
	if f.uploadErr != nil {
		return platform.Media{}, f.uploadErr
	}
	return platform.Media{ID: "3141592653", Code: "Cxyz"}, nil
}

func (f *fakePublisher) DownloadProfilePicture(_ context.Context, dest string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads++
	if f.downloadErr != nil {
		return f.downloadErr
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return imaging.Save(imaging.New(320, 320, color.White), dest)
}

func (f *fakePublisher) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts++
	return nil
}

func (f *fakePublisher) Username() string { return "ventureuniverse" }

type fakeRenderer struct {
	t        *testing.T
	dir      string
	size     int64
	err      error
	calls    int
	cleanups int
}

func (f *fakeRenderer) Generate(_ context.Context, _ content.ReelContent) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	path := filepath.Join(f.dir, "reel.mp4")
	testsupport.WriteFile(f.t, path, f.size)
	return path, nil
}

func (f *fakeRenderer) Cleanup() { f.cleanups++ }

type notification struct {
	kind  string
	stage string
	err   error
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (f *fakeNotifier) record(n notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, n)
	return nil
}

func (f *fakeNotifier) NotifyReelPosted(context.Context, string, string, string) error {
	return f.record(notification{kind: "posted"})
}

func (f *fakeNotifier) NotifyPostFailed(_ context.Context, err error, stage string) error {
	return f.record(notification{kind: "failed", stage: stage, err: err})
}

func (f *fakeNotifier) NotifyChallengeRequired(context.Context, string) error {
	return f.record(notification{kind: "challenge"})
}

func (f *fakeNotifier) NotifySchedulerStarted(context.Context, time.Time) error {
	return f.record(notification{kind: "scheduler"})
}

func (f *fakeNotifier) TestNotification(context.Context) error {
	return f.record(notification{kind: "test"})
}

type harness struct {
	cfg       *config.Config
	store     *history.Store
	content   *fakeContent
	publisher *fakePublisher
	renderer  *fakeRenderer
	notifier  *fakeNotifier
	probe     workflow.ProbeFunc
	runner    *workflow.Runner
}

func goodProbe(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", Width: 1080, Height: 1920}},
		Format:  ffprobe.Format{Duration: "15.000000"},
	}, nil
}

func newHarness(t *testing.T, opts ...testsupport.ConfigOption) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	h := &harness{
		cfg:   cfg,
		store: testsupport.MustOpenStore(t, cfg),
		content: &fakeContent{
			reel:    content.ReelContent{Type: content.SourceAPOD, Title: "Nebula X", Text: "Nebula X", ImageURL: "http://img"},
			caption: content.Caption{Text: "🚀 Nebula X\n\nWow", Source: content.SourceAPOD, Title: "Nebula X"},
		},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
		probe:     goodProbe,
	}
	h.renderer = &fakeRenderer{t: t, dir: cfg.Paths.OutputDir, size: 200 * 1024}
	return h
}

func (h *harness) build(t *testing.T) *workflow.Runner {
	t.Helper()
	h.runner = workflow.NewRunner(h.cfg, logging.NewNop(),
		workflow.WithStore(h.store),
		workflow.WithContentSource(h.content),
		workflow.WithPublisher(h.publisher),
		workflow.WithRenderer(h.renderer),
		workflow.WithNotifier(h.notifier),
		workflow.WithProbe(func(ctx context.Context, path string) (ffprobe.Result, error) { return h.probe(ctx, path) }),
		workflow.WithClock(func() time.Time { return time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC) }),
	)
	if err := h.runner.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	return h.runner
}

func TestPostDailyReelSuccess(t *testing.T) {
	h := newHarness(t, testsupport.WithArchive())
	runner := h.build(t)

	result, err := runner.PostDailyReel(context.Background(), history.TriggerManual)
	if err != nil {
		t.Fatalf("PostDailyReel: %v", err)
	}
	if !result.Posted || result.MediaID != "3141592653" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.ContentType != "apod" || result.Title != "Nebula X" {
		t.Fatalf("unexpected content metadata %+v", result)
	}
	if len(h.publisher.captions) != 1 || h.publisher.captions[0] != h.content.caption.Text {
		t.Fatalf("expected generated caption to be uploaded, got %v", h.publisher.captions)
	}
	if len(h.content.preferred) != 1 || h.content.preferred[0] != content.SourceAPOD {
		t.Fatalf("expected configured preferred source, got %v", h.content.preferred)
	}

	wantArchive := filepath.Join(h.cfg.Paths.ArchiveDir, "2024-03-05_nebula_x.mp4")
	if result.ArchivePath != wantArchive {
		t.Fatalf("archive path = %q, want %q", result.ArchivePath, wantArchive)
	}
	if _, err := os.Stat(wantArchive); err != nil {
		t.Fatalf("archive copy missing: %v", err)
	}

	run, err := h.store.Get(context.Background(), result.RunID)
	if err != nil || run == nil {
		t.Fatalf("Get run: %v %v", run, err)
	}
	if run.Status != history.StatusPosted || run.MediaID != "3141592653" || run.ContentType != "apod" {
		t.Fatalf("unexpected history row %+v", run)
	}
	if run.Trigger != history.TriggerManual {
		t.Fatalf("expected manual trigger, got %q", run.Trigger)
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].kind != "posted" {
		t.Fatalf("expected a posted notification, got %+v", h.notifier.events)
	}
}

func TestPostDailyReelUploadFailureIsRecorded(t *testing.T) {
	h := newHarness(t)
	h.publisher.uploadErr = services.Wrap(services.ErrRateLimited, "platform", "upload", "", errors.New("please wait a few minutes"))
	runner := h.build(t)

	result, err := runner.PostDailyReel(context.Background(), history.TriggerSchedule)
	if !errors.Is(err, services.ErrRateLimited) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if result.Posted || result.Stage != workflow.StageUpload {
		t.Fatalf("unexpected result %+v", result)
	}
	run, _ := h.store.Get(context.Background(), result.RunID)
	if run == nil || run.Status != history.StatusFailed || run.ErrorKind != "rate_limited" {
		t.Fatalf("unexpected history row %+v", run)
	}
	if run.VideoPath == "" {
		t.Fatal("expected rendered video path to be recorded on failure")
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].kind != "failed" || h.notifier.events[0].stage != workflow.StageUpload {
		t.Fatalf("expected upload failure notification, got %+v", h.notifier.events)
	}
}

func TestPostDailyReelChallengeStopsBeforeRender(t *testing.T) {
	h := newHarness(t)
	testsupport.WriteJPEG(t, h.cfg.Reel.ProfilePicPath, 64, 64, color.White)
	h.publisher.loginErr = services.Wrap(services.ErrChallengeRequired, "platform", "login", "", errors.New("checkpoint_required"))
	runner := h.build(t)

	result, err := runner.PostDailyReel(context.Background(), history.TriggerSchedule)
	if !errors.Is(err, services.ErrChallengeRequired) {
		t.Fatalf("expected challenge error, got %v", err)
	}
	if result.Stage != workflow.StageLogin {
		t.Fatalf("expected login stage, got %q", result.Stage)
	}
	if h.renderer.calls != 0 || len(h.publisher.uploads) != 0 {
		t.Fatal("pipeline must stop at the login stage")
	}
	if len(h.notifier.events) != 1 || h.notifier.events[0].kind != "challenge" {
		t.Fatalf("expected challenge notification, got %+v", h.notifier.events)
	}
}

func TestPostDailyReelRenderFailure(t *testing.T) {
	h := newHarness(t)
	h.renderer.err = services.Wrap(services.ErrExternalTool, "render", "encode", "", errors.New("no encoder available"))
	runner := h.build(t)

	result, err := runner.PostDailyReel(context.Background(), history.TriggerManual)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if result.Posted || result.Stage != workflow.StageRender {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(h.publisher.uploads) != 0 {
		t.Fatal("nothing should be uploaded after a render failure")
	}
}

func TestPostDailyReelRejectsTinyVideo(t *testing.T) {
	h := newHarness(t)
	h.renderer.size = 1024
	runner := h.build(t)

	result, err := runner.PostDailyReel(context.Background(), history.TriggerManual)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if result.Stage != workflow.StageValidate || len(h.publisher.uploads) != 0 {
		t.Fatalf("unexpected result %+v uploads=%v", result, h.publisher.uploads)
	}
}

func TestPostDailyReelProbeChecks(t *testing.T) {
	t.Run("wrong dimensions", func(t *testing.T) {
		h := newHarness(t)
		h.probe = func(context.Context, string) (ffprobe.Result, error) {
			return ffprobe.Result{
				Streams: []ffprobe.Stream{{CodecType: "video", Width: 1920, Height: 1080}},
				Format:  ffprobe.Format{Duration: "15"},
			}, nil
		}
		runner := h.build(t)
		if _, err := runner.PostDailyReel(context.Background(), history.TriggerManual); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
	t.Run("inspection failure only warns", func(t *testing.T) {
		h := newHarness(t)
		h.probe = func(context.Context, string) (ffprobe.Result, error) {
			return ffprobe.Result{}, errors.New("ffprobe inspect: exit status 1")
		}
		runner := h.build(t)
		result, err := runner.PostDailyReel(context.Background(), history.TriggerManual)
		if err != nil || !result.Posted {
			t.Fatalf("expected post to proceed, got %+v %v", result, err)
		}
	})
}

func TestPostDailyReelRequiresInitialize(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := workflow.NewRunner(cfg, logging.NewNop())
	if _, err := runner.PostDailyReel(context.Background(), history.TriggerManual); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestInitializeRequiresCredentials(t *testing.T) {
	h := newHarness(t)
	h.cfg.Instagram.Password = ""
	runner := workflow.NewRunner(h.cfg, logging.NewNop(), workflow.WithStore(h.store), workflow.WithPublisher(h.publisher))
	if err := runner.Initialize(context.Background()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestEnsureProfileImage(t *testing.T) {
	t.Run("downloads when missing", func(t *testing.T) {
		h := newHarness(t)
		h.build(t)
		if h.publisher.downloads != 1 {
			t.Fatalf("expected one download, got %d", h.publisher.downloads)
		}
		img, err := imaging.Open(h.cfg.Reel.ProfilePicPath)
		if err != nil || img.Bounds().Dx() != 320 {
			t.Fatalf("expected downloaded profile picture, got %v", err)
		}
	})
	t.Run("placeholder when download fails", func(t *testing.T) {
		h := newHarness(t)
		h.publisher.downloadErr = services.Wrap(services.ErrNotFound, "platform", "profile picture", "", nil)
		h.build(t)
		img, err := imaging.Open(h.cfg.Reel.ProfilePicPath)
		if err != nil {
			t.Fatalf("expected placeholder: %v", err)
		}
		if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 400 {
			t.Fatalf("unexpected placeholder size %v", img.Bounds())
		}
	})
	t.Run("existing picture is kept", func(t *testing.T) {
		h := newHarness(t)
		testsupport.WriteJPEG(t, h.cfg.Reel.ProfilePicPath, 50, 50, color.Black)
		h.build(t)
		if h.publisher.logins != 0 || h.publisher.downloads != 0 {
			t.Fatalf("expected no platform calls, got logins=%d downloads=%d", h.publisher.logins, h.publisher.downloads)
		}
	})
	t.Run("logo mode skips the profile picture", func(t *testing.T) {
		h := newHarness(t)
		h.cfg.Reel.UseLogo = true
		testsupport.WriteJPEG(t, h.cfg.Reel.LogoPath, 50, 50, color.White)
		h.build(t)
		if h.publisher.downloads != 0 {
			t.Fatal("logo mode should not download a profile picture")
		}
		if _, err := os.Stat(h.cfg.Reel.ProfilePicPath); !os.IsNotExist(err) {
			t.Fatalf("expected no profile picture, got %v", err)
		}
	})
}

func TestShutdownLogsOutAndCleansUp(t *testing.T) {
	h := newHarness(t)
	runner := h.build(t)
	if err := runner.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if h.publisher.logouts != 1 || h.renderer.cleanups != 1 {
		t.Fatalf("expected logout and cleanup, got logouts=%d cleanups=%d", h.publisher.logouts, h.renderer.cleanups)
	}
	if _, err := h.store.Recent(context.Background(), 1); err != nil {
		t.Fatalf("injected store must stay open: %v", err)
	}
}
