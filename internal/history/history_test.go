package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"skyreel/internal/services"
)

func openTestStore(t *testing.T, now *time.Time) *Store {
	t.Helper()
	loc := time.FixedZone("UTC-5", -5*60*60)
	store, err := OpenPath(filepath.Join(t.TempDir(), "history.db"), loc)
	if err != nil {
		t.Fatalf("OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	store.now = func() time.Time { return *now }
	return store
}

func TestRunLifecycle(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)
	ctx := context.Background()

	run, err := store.Start(ctx, TriggerSchedule)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if run.ID == "" || run.Status != StatusRunning {
		t.Fatalf("unexpected run %+v", run)
	}
	if run.LocalDate != "2024-03-10" {
		t.Fatalf("unexpected local date %q", run.LocalDate)
	}

	now = now.Add(90 * time.Second)
	run.ContentType = "apod"
	run.Title = "Nebula X"
	run.MediaID = "1234"
	run.VideoPath = "/tmp/reel.mp4"
	if err := store.MarkPosted(ctx, run); err != nil {
		t.Fatalf("MarkPosted: %v", err)
	}

	fetched, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if fetched.Status != StatusPosted || fetched.MediaID != "1234" || fetched.Title != "Nebula X" {
		t.Fatalf("unexpected fetched run %+v", fetched)
	}
	if fetched.Duration() != 90*time.Second {
		t.Fatalf("unexpected duration %s", fetched.Duration())
	}

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil for unknown run, got %+v err=%v", missing, err)
	}
}

func TestMarkFailedRecordsKind(t *testing.T) {
	now := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)
	ctx := context.Background()

	run, err := store.Start(ctx, TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	cause := services.Wrap(services.ErrChallengeRequired, "platform", "login", "", errors.New("checkpoint"))
	if err := store.MarkFailed(ctx, run, cause); err != nil {
		t.Fatalf("MarkFailed: %v", err)
	}
	fetched, err := store.Get(ctx, run.ID)
	if err != nil {
		t.Fatal(err)
	}
	if fetched.Status != StatusFailed || fetched.ErrorKind != "challenge_required" || fetched.ErrorMessage == "" {
		t.Fatalf("unexpected failed run %+v", fetched)
	}
	if err := store.MarkPosted(ctx, &Run{ID: "unknown"}); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found for unknown run, got %v", err)
	}
}

func TestPostedOnUsesLocalDay(t *testing.T) {
	// 03:00 UTC on the 11th is still the 10th at UTC-5.
	now := time.Date(2024, 3, 11, 3, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)
	ctx := context.Background()

	failed, _ := store.Start(ctx, TriggerSchedule)
	if err := store.MarkFailed(ctx, failed, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	posted, err := store.PostedOn(ctx, now)
	if err != nil {
		t.Fatal(err)
	}
	if posted {
		t.Fatal("a failed run must not count as posted")
	}

	run, _ := store.Start(ctx, TriggerSchedule)
	if err := store.MarkPosted(ctx, run); err != nil {
		t.Fatal(err)
	}
	if posted, _ := store.PostedOn(ctx, time.Date(2024, 3, 10, 20, 0, 0, 0, time.UTC)); !posted {
		t.Fatal("expected post to count for the local day")
	}
	if posted, _ := store.PostedOn(ctx, time.Date(2024, 3, 11, 20, 0, 0, 0, time.UTC)); posted {
		t.Fatal("next local day should not be marked as posted")
	}

	last, err := store.LastPosted(ctx)
	if err != nil || last == nil || last.ID != run.ID {
		t.Fatalf("unexpected last posted %+v err=%v", last, err)
	}
}

func TestRecentOrdersNewestFirstAndFailsInterrupted(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.Start(ctx, TriggerSchedule)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, run.ID)
		now = now.Add(24 * time.Hour)
	}

	recent, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 2 || recent[0].ID != ids[2] || recent[1].ID != ids[1] {
		t.Fatalf("unexpected recent order %+v", recent)
	}

	n, err := store.FailInterrupted(ctx, now)
	if err != nil {
		t.Fatalf("FailInterrupted: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 interrupted runs, got %d", n)
	}
	run, _ := store.Get(ctx, ids[0])
	if run.Status != StatusFailed || run.ErrorKind != "interrupted" {
		t.Fatalf("unexpected interrupted run %+v", run)
	}
}

func TestFailInterruptedSparesLiveManualRuns(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	store := openTestStore(t, &now)
	ctx := context.Background()

	oldManual, err := store.Start(ctx, TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	now = now.Add(3 * time.Hour)
	scheduled, err := store.Start(ctx, TriggerSchedule)
	if err != nil {
		t.Fatal(err)
	}
	liveManual, err := store.Start(ctx, TriggerManual)
	if err != nil {
		t.Fatal(err)
	}

	now = now.Add(time.Minute)
	n, err := store.FailInterrupted(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("FailInterrupted: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 interrupted runs, got %d", n)
	}
	for _, id := range []string{oldManual.ID, scheduled.ID} {
		if run, _ := store.Get(ctx, id); run == nil || run.Status != StatusFailed {
			t.Fatalf("expected run %s failed, got %+v", id, run)
		}
	}
	run, _ := store.Get(ctx, liveManual.ID)
	if run == nil || run.Status != StatusRunning {
		t.Fatalf("expected in-flight manual run to stay running, got %+v", run)
	}
	if err := store.MarkPosted(ctx, liveManual); err != nil {
		t.Fatalf("MarkPosted after recovery: %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := OpenPath(path, time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	run, err := store.Start(context.Background(), TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := OpenPath(path, time.UTC)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if got, _ := reopened.Get(context.Background(), run.ID); got == nil {
		t.Fatal("expected run to survive reopen")
	}
}
