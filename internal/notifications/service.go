package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skyreel/internal/config"
	"skyreel/internal/services"
)

const (
	userAgent       = "skyreel/0.1"
	defaultNtfyBase = "https://ntfy.sh/"
)

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyReelPosted(ctx context.Context, title, mediaID, contentType string) error
	NotifyPostFailed(ctx context.Context, err error, stage string) error
	NotifyChallengeRequired(ctx context.Context, username string) error
	NotifySchedulerStarted(ctx context.Context, nextRun time.Time) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned. A
// bare topic name is published to ntfy.sh.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}
	endpoint := topic
	if !strings.Contains(topic, "://") {
		endpoint = defaultNtfyBase + strings.TrimPrefix(topic, "/")
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		posted:   cfg.Notifications.Posted,
		errors:   cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
	posted   bool
	errors   bool
}

func (n *ntfyService) NotifyReelPosted(ctx context.Context, title, mediaID, contentType string) error {
	if !n.posted {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled reel"
	}
	message := fmt.Sprintf("🚀 Reel posted: %s", title)
	if contentType = strings.TrimSpace(contentType); contentType != "" {
		message = fmt.Sprintf("%s (%s)", message, contentType)
	}
	if mediaID = strings.TrimSpace(mediaID); mediaID != "" {
		message = fmt.Sprintf("%s\nMedia ID: %s", message, mediaID)
	}
	return n.send(ctx, payload{
		title:   "skyreel - Posted",
		message: message,
		tags:    []string{"skyreel", "reel", "posted"},
	})
}

func (n *ntfyService) NotifyPostFailed(ctx context.Context, err error, stage string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Reel not posted")
	if stage = strings.TrimSpace(stage); stage != "" {
		builder.WriteString(" (")
		builder.WriteString(stage)
		builder.WriteString(")")
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
		if hint := services.FailureHint(err); hint != "" {
			builder.WriteString("\nHint: ")
			builder.WriteString(hint)
		}
	} else {
		builder.WriteString("unknown")
	}
	return n.send(ctx, payload{
		title:    "skyreel - Error",
		message:  builder.String(),
		tags:     []string{"skyreel", "error", "alert"},
		priority: "high",
	})
}

func (n *ntfyService) NotifyChallengeRequired(ctx context.Context, username string) error {
	if !n.errors {
		return nil
	}
	return n.send(ctx, payload{
		title:    "skyreel - Login Challenge",
		message:  fmt.Sprintf("🔐 Instagram requires a manual challenge for @%s.\nApprove it in the app, then run 'skyreel login'.", strings.TrimSpace(username)),
		tags:     []string{"skyreel", "login", "challenge"},
		priority: "urgent",
	})
}

func (n *ntfyService) NotifySchedulerStarted(ctx context.Context, nextRun time.Time) error {
	return n.send(ctx, payload{
		title:    "skyreel - Scheduler Started",
		message:  fmt.Sprintf("Next reel at %s", nextRun.Format("Mon 2006-01-02 15:04 MST")),
		tags:     []string{"skyreel", "scheduler"},
		priority: "low",
	})
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	return n.send(ctx, payload{
		title:    "skyreel - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"skyreel", "test"},
		priority: "low",
	})
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyReelPosted(context.Context, string, string, string) error { return nil }
func (noopService) NotifyPostFailed(context.Context, error, string) error          { return nil }
func (noopService) NotifyChallengeRequired(context.Context, string) error          { return nil }
func (noopService) NotifySchedulerStarted(context.Context, time.Time) error        { return nil }
func (noopService) TestNotification(context.Context) error                         { return nil }
