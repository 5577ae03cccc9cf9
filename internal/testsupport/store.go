package testsupport

import (
	"context"
	"testing"

	"skyreel/internal/config"
	"skyreel/internal/history"
)

// MustOpenStore opens a history.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// StartRun records a new running post for tests.
func StartRun(t testing.TB, store *history.Store, trigger history.Trigger) *history.Run {
	t.Helper()

	run, err := store.Start(context.Background(), trigger)
	if err != nil {
		t.Fatalf("store.Start: %v", err)
	}
	return run
}
