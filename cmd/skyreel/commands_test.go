package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"skyreel/internal/config"
	"skyreel/internal/daemon"
	"skyreel/internal/history"
	"skyreel/internal/services"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INSTAGRAM_USERNAME", "INSTAGRAM_PASSWORD", "NASA_API_KEY", "POSTING_TIME",
		"PROFILE_PIC_PATH", "USE_LOGO", "LOGO_PATH", "NTFY_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

// writeConfig points every directory at a temp root and returns the file.
func writeConfig(t *testing.T) string {
	t.Helper()
	clearEnv(t)
	root := t.TempDir()
	t.Setenv("HOME", root)
	path := filepath.Join(root, "skyreel.toml")
	body := `[paths]
output_dir = "` + filepath.Join(root, "output") + `"
state_dir = "` + filepath.Join(root, "state") + `"
log_dir = "` + filepath.Join(root, "logs") + `"

[instagram]
username = "orbit"
password = "hunter2"

[schedule]
posting_time = "09:30"
days = ["mon", "fri"]
timezone = "UTC"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestConfigInitWritesSampleOnce(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, err := runCLI(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, target) {
		t.Fatalf("expected path in output, got %q", out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected refusal to overwrite")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
}

func TestConfigValidateReportsSchedule(t *testing.T) {
	path := writeConfig(t)
	out, err := runCLI(t, "--config", path, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	for _, want := range []string{"Config path: " + path, "Schedule: 30 9 * * 1,5 (UTC)", "Configuration valid"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Warning:") {
		t.Fatalf("credentials are set, no warning expected:\n%s", out)
	}
}

func TestPostRejectsUnknownSource(t *testing.T) {
	path := writeConfig(t)
	_, err := runCLI(t, "--config", path, "post", "--source", "tabloid")
	if err == nil || !strings.Contains(err.Error(), "--source") {
		t.Fatalf("expected --source error, got %v", err)
	}
}

func TestHistoryWithoutRuns(t *testing.T) {
	path := writeConfig(t)
	out, err := runCLI(t, "--config", path, "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "No runs recorded yet") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestHistoryListsRecordedRuns(t *testing.T) {
	path := writeConfig(t)
	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	posted, err := store.Start(ctx, history.TriggerSchedule)
	if err != nil {
		t.Fatal(err)
	}
	posted.Title = "Pillars of Creation"
	posted.ContentType = "apod"
	posted.MediaID = "1789"
	if err := store.MarkPosted(ctx, posted); err != nil {
		t.Fatal(err)
	}
	failed, err := store.Start(ctx, history.TriggerManual)
	if err != nil {
		t.Fatal(err)
	}
	cause := services.Wrap(services.ErrRateLimited, "upload", "post reel", "", errors.New("please wait"))
	if err := store.MarkFailed(ctx, failed, cause); err != nil {
		t.Fatal(err)
	}
	store.Close()

	out, err := runCLI(t, "--config", path, "history", "--limit", "5")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{"Pillars of Creation", "Posted", "Failed", "manual", "rate_limited", "1789"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestRenderHistoryFormatsDurationInLocation(t *testing.T) {
	started := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	loc := time.FixedZone("EST", -5*3600)
	out := renderHistory([]*history.Run{{
		Trigger:    history.TriggerSchedule,
		Status:     history.StatusPosted,
		StartedAt:  started,
		FinishedAt: started.Add(95 * time.Second),
		Title:      "Nebula",
	}}, loc)
	for _, want := range []string{"2024-03-05 09:00", "1m35s", "Posted", "schedule"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in:\n%s", want, out)
		}
	}
}

func TestRunRefusesWhileAnotherSchedulerHoldsLock(t *testing.T) {
	path := writeConfig(t)
	root := filepath.Dir(path)
	lock, err := daemon.AcquireLock(filepath.Join(root, "state", "skyreel.lock"))
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	defer lock.Unlock()

	_, err = runCLI(t, "--config", path, "run")
	if !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected already running error, got %v", err)
	}
	for _, name := range []string{
		filepath.Join(root, "state", "instagram_session.json"),
		filepath.Join(root, ".local", "share", "skyreel", "profile_pic.jpg"),
	} {
		if _, err := os.Stat(name); !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("expected %s untouched before the lock check, stat err %v", name, err)
		}
	}
	if !lock.Locked() {
		t.Fatal("expected the other scheduler's lock to stay held")
	}
}
