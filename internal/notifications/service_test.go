package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"skyreel/internal/config"
	"skyreel/internal/notifications"
	"skyreel/internal/services"
)

type captured struct {
	title    string
	tags     string
	priority string
	body     string
}

func ntfyServer(t *testing.T, status int) (*httptest.Server, *[]captured) {
	t.Helper()
	var requests []captured
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, captured{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyReelPosted(context.Background(), "Nebula X", "1", "apod"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	srv, requests := ntfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL + "/skyreel"
	svc := notifications.NewService(&cfg)
	ctx := context.Background()

	if err := svc.NotifyReelPosted(ctx, "Nebula X", "1234", "apod"); err != nil {
		t.Fatalf("NotifyReelPosted: %v", err)
	}
	challenge := services.Wrap(services.ErrChallengeRequired, "platform", "login", "", errors.New("checkpoint"))
	if err := svc.NotifyPostFailed(ctx, challenge, "login"); err != nil {
		t.Fatalf("NotifyPostFailed: %v", err)
	}
	if err := svc.NotifyChallengeRequired(ctx, "ventureuniverse"); err != nil {
		t.Fatalf("NotifyChallengeRequired: %v", err)
	}
	if err := svc.NotifySchedulerStarted(ctx, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("NotifySchedulerStarted: %v", err)
	}
	if err := svc.TestNotification(ctx); err != nil {
		t.Fatalf("TestNotification: %v", err)
	}

	got := *requests
	if len(got) != 5 {
		t.Fatalf("expected 5 requests, got %d", len(got))
	}
	if got[0].title != "skyreel - Posted" || got[0].body != "🚀 Reel posted: Nebula X (apod)\nMedia ID: 1234" || got[0].tags != "skyreel,reel,posted" {
		t.Fatalf("unexpected posted payload %+v", got[0])
	}
	if got[0].priority != "" {
		t.Fatalf("posted notification should use default priority, got %q", got[0].priority)
	}
	if got[1].priority != "high" || !strings.Contains(got[1].body, "(login)") || !strings.Contains(got[1].body, "Hint: approve the login") {
		t.Fatalf("unexpected failure payload %+v", got[1])
	}
	if got[2].priority != "urgent" || !strings.Contains(got[2].body, "@ventureuniverse") {
		t.Fatalf("unexpected challenge payload %+v", got[2])
	}
	if !strings.Contains(got[3].body, "Tue 2024-01-02 09:00 UTC") {
		t.Fatalf("unexpected scheduler payload %+v", got[3])
	}
	if got[4].title != "skyreel - Test" || got[4].priority != "low" {
		t.Fatalf("unexpected test payload %+v", got[4])
	}
}

func TestNtfyServiceHonoursToggles(t *testing.T) {
	srv, requests := ntfyServer(t, http.StatusOK)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	cfg.Notifications.Posted = false
	cfg.Notifications.Errors = false
	svc := notifications.NewService(&cfg)

	_ = svc.NotifyReelPosted(context.Background(), "x", "", "")
	_ = svc.NotifyPostFailed(context.Background(), errors.New("boom"), "")
	_ = svc.NotifyChallengeRequired(context.Background(), "x")
	if len(*requests) != 0 {
		t.Fatalf("expected disabled events to be skipped, got %d requests", len(*requests))
	}
}

func TestNtfyServiceReportsHTTPErrors(t *testing.T) {
	srv, _ := ntfyServer(t, http.StatusForbidden)
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = srv.URL
	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil || !strings.Contains(err.Error(), "403") {
		t.Fatalf("expected 403 error, got %v", err)
	}
}
