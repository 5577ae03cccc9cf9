package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"skyreel/internal/config"
	"skyreel/internal/content"
	"skyreel/internal/history"
	"skyreel/internal/logging"
	"skyreel/internal/media/ffprobe"
	"skyreel/internal/notifications"
	"skyreel/internal/platform"
	"skyreel/internal/platform/instagram"
	"skyreel/internal/render"
	"skyreel/internal/services"
)

// Runner coordinates posting runs.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	now    func() time.Time

	content  ContentSource
	account  Publisher
	renderer Renderer
	store    *history.Store
	notifier notifications.Service
	probe    ProbeFunc

	ownsStore   bool
	initialized bool
}

// Option configures optional Runner collaborators. Anything left unset is
// built from config during Initialize.
type Option func(*Runner)

// WithContentSource overrides the content client.
func WithContentSource(source ContentSource) Option {
	return func(r *Runner) { r.content = source }
}

// WithPublisher overrides the platform account.
func WithPublisher(publisher Publisher) Option {
	return func(r *Runner) { r.account = publisher }
}

// WithRenderer overrides the reel composer.
func WithRenderer(renderer Renderer) Option {
	return func(r *Runner) { r.renderer = renderer }
}

// WithStore uses an already open history store. The caller keeps ownership.
func WithStore(store *history.Store) Option {
	return func(r *Runner) { r.store = store }
}

// WithNotifier overrides the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(r *Runner) { r.notifier = notifier }
}

// WithProbe overrides video inspection.
func WithProbe(probe ProbeFunc) Option {
	return func(r *Runner) { r.probe = probe }
}

// WithClock overrides the time source used for archive names.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner constructs an uninitialized runner.
func NewRunner(cfg *config.Config, logger *slog.Logger, opts ...Option) *Runner {
	r := &Runner{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "workflow"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Initialize validates credentials, prepares directories and builds every
// collaborator not supplied as an option. It finishes by making sure a
// profile image exists.
func (r *Runner) Initialize(ctx context.Context) error {
	if r.initialized {
		return nil
	}
	if r.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "initialize", "config is required", nil)
	}
	if err := r.cfg.ValidateCredentials(); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "initialize", "", err)
	}
	if err := r.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "initialize", "", err)
	}

	base := r.logger
	if r.store == nil {
		store, err := history.Open(r.cfg)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, "workflow", "open history", "", err)
		}
		r.store = store
		r.ownsStore = true
	}
	if r.content == nil {
		r.content = content.NewClient(content.ConfigFromApp(r.cfg), content.WithLogger(base))
	}
	if r.account == nil {
		r.account = platform.NewAccount(instagram.New(), platform.Credentials{
			Username: r.cfg.Instagram.Username,
			Password: r.cfg.Instagram.Password,
		}, platform.Options{
			SessionFile: r.cfg.Instagram.SessionFile,
			MaxUploadMB: r.cfg.Instagram.MaxUploadMB,
			Logger:      base,
		})
	}
	if r.renderer == nil {
		opts := render.OptionsFromConfig(r.cfg)
		opts.Logger = base
		r.renderer = render.NewComposer(opts)
	}
	if r.notifier == nil {
		r.notifier = notifications.NewService(r.cfg)
	}
	if r.probe == nil {
		r.probe = ffprobeInspector(r.cfg.Reel.FFprobeBinary)
	}
	r.initialized = true

	if err := r.EnsureProfileImage(ctx); err != nil {
		return err
	}
	r.logger.Info("runner initialized",
		logging.String("username", r.account.Username()),
		logging.String("output_dir", r.cfg.Paths.OutputDir),
	)
	return nil
}

// EnsureProfileImage makes sure the frame has an avatar. Logo mode needs
// nothing; otherwise a missing profile picture is downloaded from the
// account, falling back to a solid placeholder.
func (r *Runner) EnsureProfileImage(ctx context.Context) error {
	if r.cfg.Reel.UseLogo && fileExists(r.cfg.Reel.LogoPath) {
		r.logger.Debug("logo mode active; profile picture not needed", logging.String("logo_path", r.cfg.Reel.LogoPath))
		return nil
	}
	path := r.cfg.Reel.ProfilePicPath
	if path == "" {
		return nil
	}
	if fileExists(path) {
		return nil
	}

	err := r.account.Login(ctx)
	if err == nil {
		err = r.account.DownloadProfilePicture(ctx, path)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	logging.WarnWithContext(r.logger, "using placeholder profile image", "profile_placeholder",
		logging.Path(path),
		logging.Error(err),
		logging.Impact("reel frame shows a plain circle instead of the account picture"),
	)
	if err := render.PlaceholderProfile(path); err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "profile placeholder", path, err)
	}
	return nil
}

// Shutdown logs out and removes temporary render artifacts.
func (r *Runner) Shutdown(ctx context.Context) error {
	var errs []error
	if r.account != nil {
		if err := r.account.Logout(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if r.renderer != nil {
		r.renderer.Cleanup()
	}
	if r.ownsStore && r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, err)
		}
		r.store = nil
	}
	r.initialized = false
	r.logger.Info("runner shut down")
	return errors.Join(errs...)
}

// History exposes the run store for the scheduler's double-post guard.
func (r *Runner) History() *history.Store {
	return r.store
}

// Notifier returns the configured notification service.
func (r *Runner) Notifier() notifications.Service {
	return r.notifier
}

var errProbeUnavailable = errors.New("ffprobe not installed")

func ffprobeInspector(binary string) ProbeFunc {
	if binary == "" {
		binary = "ffprobe"
	}
	return func(ctx context.Context, path string) (ffprobe.Result, error) {
		if _, err := exec.LookPath(binary); err != nil {
			return ffprobe.Result{}, fmt.Errorf("%w: %v", errProbeUnavailable, err)
		}
		return ffprobe.Inspect(ctx, binary, path)
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
