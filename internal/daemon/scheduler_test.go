package daemon

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"skyreel/internal/config"
	"skyreel/internal/history"
	"skyreel/internal/logging"
	"skyreel/internal/testsupport"
	"skyreel/internal/workflow"
)

type fakePoster struct {
	mu    sync.Mutex
	calls int
	err   error
	panic bool
	hook  func()
}

func (f *fakePoster) PostDailyReel(context.Context, history.Trigger) (workflow.Result, error) {
	f.mu.Lock()
	f.calls++
	hook := f.hook
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if f.panic {
		panic("renderer exploded")
	}
	if f.err != nil {
		return workflow.Result{RunID: "run-1", Stage: workflow.StageUpload}, f.err
	}
	return workflow.Result{RunID: "run-1", Posted: true, MediaID: "42"}, nil
}

func (f *fakePoster) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T, cfg *config.Config, poster Poster, store *history.Store, clk *clock, opts ...Option) *Scheduler {
	t.Helper()
	opts = append([]Option{WithClock(clk.Now), WithPollInterval(5 * time.Millisecond)}, opts...)
	s, err := New(cfg, poster, store, logging.NewNop(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func TestExpression(t *testing.T) {
	cfg := config.Default()
	expr, err := Expression(&cfg)
	if err != nil || expr != "0 9 * * *" {
		t.Fatalf("Expression = %q, %v", expr, err)
	}

	cfg.Schedule.PostingTime = "18:45"
	cfg.Schedule.Days = []string{"mon", "Wednesday", "monday"}
	expr, err = Expression(&cfg)
	if err != nil || expr != "45 18 * * 1,3" {
		t.Fatalf("Expression = %q, %v", expr, err)
	}

	cfg.Schedule.PostingTime = "25:00"
	if _, err := Expression(&cfg); err == nil {
		t.Fatal("expected invalid posting time to fail")
	}
}

func TestNextAfterHonoursTimezoneAndDays(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.Timezone = "America/New_York"
	s := newTestScheduler(t, cfg, &fakePoster{}, nil, &clock{})
	ny, _ := time.LoadLocation("America/New_York")

	// 08:00 in New York: today's slot is still ahead.
	next := s.NextAfter(time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 1, 2, 9, 0, 0, 0, ny); !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
	// 09:30 in New York: tomorrow.
	next = s.NextAfter(time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC))
	if want := time.Date(2024, 1, 3, 9, 0, 0, 0, ny); !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}

	cfg.Schedule.Days = []string{"mon"}
	s = newTestScheduler(t, cfg, &fakePoster{}, nil, &clock{})
	next = s.NextAfter(time.Date(2024, 1, 2, 13, 0, 0, 0, time.UTC))
	if want := time.Date(2024, 1, 8, 9, 0, 0, 0, ny); !next.Equal(want) {
		t.Fatalf("weekday-limited next = %v, want %v", next, want)
	}
}

func TestTickRunsOnlyWhenDue(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.SkipIfPostedToday = false
	clk := &clock{now: time.Date(2024, 1, 2, 8, 59, 0, 0, time.UTC)}
	poster := &fakePoster{}
	s := newTestScheduler(t, cfg, poster, nil, clk)
	s.setNext(s.NextAfter(clk.Now()))

	if s.tick(context.Background()) {
		t.Fatal("tick before the slot must not run")
	}
	clk.Set(time.Date(2024, 1, 2, 9, 0, 30, 0, time.UTC))
	if !s.tick(context.Background()) {
		t.Fatal("tick after the slot must run")
	}
	if poster.count() != 1 {
		t.Fatalf("expected one run, got %d", poster.count())
	}
	if want := time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC); !s.Next().Equal(want) {
		t.Fatalf("next = %v, want %v", s.Next(), want)
	}
	if s.tick(context.Background()) {
		t.Fatal("second tick in the same minute must not run again")
	}
}

func TestTickContinuesAfterFailureAndPanic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	clk := &clock{now: time.Date(2024, 1, 2, 9, 1, 0, 0, time.UTC)}

	failing := &fakePoster{err: errors.New("upload failed")}
	s := newTestScheduler(t, cfg, failing, nil, clk)
	s.setNext(clk.Now().Add(-time.Minute))
	if !s.tick(context.Background()) {
		t.Fatal("expected run")
	}
	if status := s.Status(); status.LastError != "upload failed" || status.NextRun.Before(clk.Now()) {
		t.Fatalf("unexpected status %+v", status)
	}

	panicking := &fakePoster{panic: true}
	s = newTestScheduler(t, cfg, panicking, nil, clk)
	s.setNext(clk.Now().Add(-time.Minute))
	if !s.tick(context.Background()) {
		t.Fatal("expected run")
	}
	if status := s.Status(); !strings.Contains(status.LastError, "panicked") {
		t.Fatalf("expected panic to be recorded, got %+v", status)
	}
}

func TestTickSkipsWhenAlreadyPostedToday(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Schedule.SkipIfPostedToday = true
	store := testsupport.MustOpenStore(t, cfg)
	run := testsupport.StartRun(t, store, history.TriggerManual)
	if err := store.MarkPosted(context.Background(), run); err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}

	clk := &clock{now: time.Now()}
	poster := &fakePoster{}
	s := newTestScheduler(t, cfg, poster, store, clk)
	s.setNext(clk.Now().Add(-time.Second))
	if !s.tick(context.Background()) {
		t.Fatal("expected the due slot to be consumed")
	}
	if poster.count() != 0 {
		t.Fatalf("expected run to be skipped, got %d calls", poster.count())
	}
}

func TestRunHoldsLockAndStopsOnCancel(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store := testsupport.MustOpenStore(t, cfg)
	stale := testsupport.StartRun(t, store, history.TriggerSchedule)
	inFlight := testsupport.StartRun(t, store, history.TriggerManual)

	start := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC)
	clk := &clock{now: start}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var lockedDuringRun bool
	poster := &fakePoster{}
	poster.hook = func() {
		locked, err := Locked(cfg)
		lockedDuringRun = err == nil && locked
		cancel()
	}
	s := newTestScheduler(t, cfg, poster, store, clk)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for s.Next().IsZero() {
		select {
		case <-deadline:
			t.Fatal("scheduler did not start")
		case <-time.After(time.Millisecond):
		}
	}
	clk.Set(start.Add(2 * time.Hour))

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop after cancellation")
	}

	if poster.count() != 1 {
		t.Fatalf("expected one run, got %d", poster.count())
	}
	if !lockedDuringRun {
		t.Fatal("expected the lock to be held while running")
	}
	if locked, err := Locked(cfg); err != nil || locked {
		t.Fatalf("expected lock released, got locked=%v err=%v", locked, err)
	}
	got, err := store.Get(context.Background(), stale.ID)
	if err != nil || got == nil || got.Status != history.StatusFailed || got.ErrorKind != "interrupted" {
		t.Fatalf("expected stale run to be failed as interrupted, got %+v %v", got, err)
	}
	got, err = store.Get(context.Background(), inFlight.ID)
	if err != nil || got == nil || got.Status != history.StatusRunning {
		t.Fatalf("expected in-flight manual post to keep running, got %+v %v", got, err)
	}
}

func TestRunRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	held := flock.New(cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("pre-lock failed: %v", err)
	}
	defer held.Unlock()

	s := newTestScheduler(t, cfg, &fakePoster{}, nil, &clock{now: time.Now()})
	err = s.Run(context.Background())
	if !errors.Is(err, ErrAlreadyRunning) || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("expected lock contention error, got %v", err)
	}
}

func TestRunUsesHeldLock(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Unlock()
	if _, err := AcquireLock(cfg.LockPath()); !errors.Is(err, ErrAlreadyRunning) {
		t.Fatalf("expected second acquire to fail, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := newTestScheduler(t, cfg, &fakePoster{}, nil, &clock{now: time.Now()}, WithHeldLock(lock))
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run with held lock: %v", err)
	}
	if !lock.Locked() {
		t.Fatal("expected Run to leave the caller's lock held")
	}
}
