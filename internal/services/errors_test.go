package services_test

import (
	"errors"
	"strings"
	"testing"

	"skyreel/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "render", "encode", "ffmpeg failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"render", "encode", "ffmpeg failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err)
	}
}

func TestFailureKindAndPermanence(t *testing.T) {
	tests := []struct {
		err       error
		kind      string
		permanent bool
	}{
		{services.Wrap(services.ErrChallengeRequired, "platform", "login", "", nil), "challenge_required", true},
		{services.Wrap(services.ErrInvalidCredentials, "platform", "login", "", nil), "invalid_credentials", true},
		{services.Wrap(services.ErrRateLimited, "platform", "upload", "", nil), "rate_limited", true},
		{services.Wrap(services.ErrNotFound, "upload", "stat", "", nil), "validation", true},
		{services.Wrap(services.ErrExternalTool, "render", "encode", "", nil), "external_tool", false},
		{services.Wrap(services.ErrTransient, "content", "apod", "", nil), "transient", false},
		{errors.New("plain"), "transient", false},
	}
	for _, tc := range tests {
		if got := services.FailureKind(tc.err); got != tc.kind {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.kind)
		}
		if got := services.IsPermanent(tc.err); got != tc.permanent {
			t.Fatalf("IsPermanent(%v) = %v, want %v", tc.err, got, tc.permanent)
		}
		if services.FailureHint(tc.err) == "" {
			t.Fatalf("expected hint for %v", tc.err)
		}
	}
	if services.FailureKind(nil) != "" || services.FailureHint(nil) != "" {
		t.Fatal("expected empty classification for nil error")
	}
}
