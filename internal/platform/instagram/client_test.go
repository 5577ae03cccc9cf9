package instagram

import (
	"context"
	"errors"
	"strings"
	"testing"

	"skyreel/internal/platform"
)

var _ platform.Backend = (*Client)(nil)

func TestOperationsRequireSession(t *testing.T) {
	client := New()
	ctx := context.Background()

	if _, err := client.Export(ctx); !errors.Is(err, platform.ErrNotLoggedIn) {
		t.Fatalf("Export without session: %v", err)
	}
	if _, err := client.AccountInfo(ctx); !errors.Is(err, platform.ErrNotLoggedIn) {
		t.Fatalf("AccountInfo without session: %v", err)
	}
	if _, err := client.UploadReel(ctx, strings.NewReader("x"), "caption"); !errors.Is(err, platform.ErrNotLoggedIn) {
		t.Fatalf("UploadReel without session: %v", err)
	}
	if err := client.Logout(ctx); err != nil {
		t.Fatalf("Logout without session should be a no-op, got %v", err)
	}
}

func TestRestoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := New().Restore(ctx, []byte("{}")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if err := New().Login(ctx, "user", "pass"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
