package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/robfig/cron/v3"

	"skyreel/internal/config"
	"skyreel/internal/history"
	"skyreel/internal/logging"
	"skyreel/internal/notifications"
	"skyreel/internal/workflow"
)

// manualRunGrace is how long a manual post may run in another process before
// a starting scheduler treats it as interrupted.
const manualRunGrace = time.Hour

// ErrAlreadyRunning is returned when another process holds the scheduler lock.
var ErrAlreadyRunning = errors.New("another skyreel scheduler is already running")

// Poster runs one posting pass.
type Poster interface {
	PostDailyReel(ctx context.Context, trigger history.Trigger) (workflow.Result, error)
}

// Scheduler fires the posting pipeline at the configured time of day.
type Scheduler struct {
	cfg      *config.Config
	logger   *slog.Logger
	poster   Poster
	store    *history.Store
	notifier notifications.Service

	schedule     cron.Schedule
	expression   string
	location     *time.Location
	pollInterval time.Duration
	now          func() time.Time

	lockPath string
	heldLock *flock.Flock

	running atomic.Bool

	mu      sync.Mutex
	next    time.Time
	lastRun time.Time
	lastErr error
}

// Status reports scheduler runtime information.
type Status struct {
	Running      bool
	Expression   string
	NextRun      time.Time
	LastRun      time.Time
	LastError    string
	LockFilePath string
}

// Option configures optional Scheduler behaviour.
type Option func(*Scheduler)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPollInterval overrides how often the clock is checked.
func WithPollInterval(interval time.Duration) Option {
	return func(s *Scheduler) { s.pollInterval = interval }
}

// WithHeldLock hands Run a lock the caller already acquired with AcquireLock.
// Run neither takes nor releases it.
func WithHeldLock(lock *flock.Flock) Option {
	return func(s *Scheduler) { s.heldLock = lock }
}

// WithNotifier sets the notification service.
func WithNotifier(notifier notifications.Service) Option {
	return func(s *Scheduler) { s.notifier = notifier }
}

// New constructs a scheduler. store may be nil, which disables the
// double-post guard and interrupted-run recovery.
func New(cfg *config.Config, poster Poster, store *history.Store, logger *slog.Logger, opts ...Option) (*Scheduler, error) {
	if cfg == nil || poster == nil {
		return nil, errors.New("scheduler requires config and poster")
	}
	schedule, expr, err := ParseSchedule(cfg)
	if err != nil {
		return nil, err
	}
	lockPath := cfg.LockPath()
	s := &Scheduler{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "scheduler"),
		poster:       poster,
		store:        store,
		schedule:     schedule,
		expression:   expr,
		location:     cfg.Location(),
		pollInterval: cfg.PollInterval(),
		now:          time.Now,
		lockPath:     lockPath,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.pollInterval <= 0 {
		s.pollInterval = time.Minute
	}
	if s.notifier == nil {
		s.notifier = notifications.NewService(cfg)
	}
	return s, nil
}

// NextAfter returns the first fire time strictly after t.
func (s *Scheduler) NextAfter(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.location))
}

// Run blocks until ctx is cancelled, posting whenever the schedule fires.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.New("scheduler already running")
	}
	defer s.running.Store(false)

	if s.heldLock == nil {
		lock, err := AcquireLock(s.lockPath)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Unlock(); err != nil {
				s.logger.Warn("failed to release scheduler lock", logging.Error(err))
			}
		}()
	}

	if s.store != nil {
		if n, err := s.store.FailInterrupted(ctx, s.now().Add(-manualRunGrace)); err != nil {
			s.logger.Warn("failed to close interrupted runs", logging.Error(err))
		} else if n > 0 {
			logging.WarnWithContext(s.logger, "marked interrupted runs as failed", "runs_interrupted",
				logging.Int64("count", n),
				logging.Impact("those runs did not post"),
			)
		}
	}

	next := s.NextAfter(s.now())
	s.setNext(next)
	s.logger.Info("scheduler started",
		logging.String("schedule", s.expression),
		logging.String("timezone", s.location.String()),
		logging.String("next_run", next.Format(time.RFC3339)),
		logging.Duration("poll_interval", s.pollInterval),
		logging.String("lock", s.lockPath),
	)
	if err := s.notifier.NotifySchedulerStarted(ctx, next); err != nil {
		s.logger.Debug("scheduler notification failed", logging.Error(err))
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()
	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// tick runs the pipeline when the next fire time has passed and reports
// whether it did.
func (s *Scheduler) tick(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	now := s.now()
	if now.Before(s.Next()) {
		return false
	}
	s.runDue(ctx, now)
	next := s.NextAfter(s.now())
	s.setNext(next)
	s.logger.Info("next reel scheduled", logging.String("next_run", next.Format(time.RFC3339)))
	return true
}

func (s *Scheduler) runDue(ctx context.Context, now time.Time) {
	if s.cfg.Schedule.SkipIfPostedToday && s.store != nil {
		posted, err := s.store.PostedOn(ctx, now)
		if err != nil {
			s.logger.Warn("could not check post history; posting anyway", logging.Error(err))
		} else if posted {
			s.logger.Info("reel already posted today; skipping scheduled run",
				logging.String("local_date", now.In(s.location).Format("2006-01-02")),
			)
			return
		}
	}

	result, err := s.runSafely(ctx)
	s.mu.Lock()
	s.lastRun = now
	s.lastErr = err
	s.mu.Unlock()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			s.logger.Info("scheduled run cancelled")
			return
		}
		s.logger.Warn("scheduled run did not post; waiting for the next slot",
			logging.RunID(result.RunID),
			logging.String("failed_stage", result.Stage),
			logging.Error(err),
		)
		return
	}
	s.logger.Info("scheduled run complete", logging.MediaID(result.MediaID))
}

// runSafely converts a panic inside the pipeline into an error so the loop
// keeps running.
func (s *Scheduler) runSafely(ctx context.Context) (result workflow.Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("posting run panicked: %v", p)
			logging.ErrorWithContext(s.logger, "posting run panicked", "run_panic",
				logging.String("panic", fmt.Sprint(p)),
				logging.Impact("run aborted; scheduler continues"),
			)
		}
	}()
	return s.poster.PostDailyReel(ctx, history.TriggerSchedule)
}

// Next returns the pending fire time.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

func (s *Scheduler) setNext(t time.Time) {
	s.mu.Lock()
	s.next = t
	s.mu.Unlock()
}

// Status snapshots the scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	status := Status{
		Running:      s.running.Load(),
		Expression:   s.expression,
		NextRun:      s.next,
		LastRun:      s.lastRun,
		LockFilePath: s.lockPath,
	}
	if status.NextRun.IsZero() {
		status.NextRun = s.schedule.Next(s.now().In(s.location))
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// AcquireLock takes the scheduler lock at path without blocking. It returns
// ErrAlreadyRunning when another process holds it.
func AcquireLock(path string) (*flock.Flock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, path)
	}
	return lock, nil
}

// Locked reports whether another process holds the scheduler lock.
func Locked(cfg *config.Config) (bool, error) {
	lock := flock.New(cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return false, lock.Unlock()
}
