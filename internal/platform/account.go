package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"skyreel/internal/fileutil"
	"skyreel/internal/logging"
	"skyreel/internal/retry"
	"skyreel/internal/services"
)

const (
	defaultMaxUploadMB   = 100
	downloadChunkSize    = 8192
	profileFetchTimeout  = 10 * time.Second
	sessionFileMode      = 0o600
	captionPreviewLength = 100
)

// Credentials holds the account login.
type Credentials struct {
	Username string
	Password string
}

// Options configures an Account.
type Options struct {
	SessionFile string
	MaxUploadMB int
	HTTPClient  *http.Client
	Logger      *slog.Logger
	// Sleep overrides retry waits (useful for tests).
	Sleep func(context.Context, time.Duration) error
}

// Account wraps a Backend with session caching, retries and upload checks.
// It is either logged in or logged out; Login and Logout move between the two.
type Account struct {
	backend     Backend
	creds       Credentials
	sessionFile string
	maxUploadMB int
	httpClient  *http.Client
	logger      *slog.Logger

	loginPolicy   retry.Policy
	uploadPolicy  retry.Policy
	profilePolicy retry.Policy

	mu       sync.Mutex
	loggedIn bool
}

// NewAccount constructs a logged-out account.
func NewAccount(backend Backend, creds Credentials, opts Options) *Account {
	logger := logging.NewComponentLogger(opts.Logger, "platform")
	maxMB := opts.MaxUploadMB
	if maxMB <= 0 {
		maxMB = defaultMaxUploadMB
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: profileFetchTimeout}
	}
	policy := func(attempts int, delay time.Duration, op string) retry.Policy {
		return retry.Policy{Attempts: attempts, Delay: delay, Operation: op, Logger: logger, Sleep: opts.Sleep}
	}
	return &Account{
		backend:       backend,
		creds:         creds,
		sessionFile:   opts.SessionFile,
		maxUploadMB:   maxMB,
		httpClient:    client,
		logger:        logger,
		loginPolicy:   policy(3, 2*time.Second, "instagram login"),
		uploadPolicy:  policy(2, 5*time.Second, "upload reel"),
		profilePolicy: policy(2, 2*time.Second, "download profile picture"),
	}
}

// Username returns the configured account name.
func (a *Account) Username() string {
	return a.creds.Username
}

// IsLoggedIn reports whether Login has succeeded since the last Logout.
func (a *Account) IsLoggedIn() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.loggedIn
}

func (a *Account) setLoggedIn(value bool) {
	a.mu.Lock()
	a.loggedIn = value
	a.mu.Unlock()
}

// Login restores the cached session when it still verifies, otherwise logs
// in with credentials and caches the new session. Challenge, credential and
// rate-limit failures are returned without retrying.
func (a *Account) Login(ctx context.Context) error {
	if a.IsLoggedIn() {
		return nil
	}
	if a.restoreSession(ctx) {
		a.setLoggedIn(true)
		a.logger.Info("logged in using saved session", logging.String("session_file", a.sessionFile))
		return nil
	}

	if strings.TrimSpace(a.creds.Username) == "" || a.creds.Password == "" {
		return services.Wrap(services.ErrConfiguration, "platform", "login", "instagram credentials are not configured", nil)
	}

	a.logger.Info("logging in to instagram", logging.String("username", a.creds.Username))
	err := retry.Do(ctx, a.loginPolicy, func(ctx context.Context) error {
		return ClassifyError("login", a.backend.Login(ctx, a.creds.Username, a.creds.Password))
	})
	if err != nil {
		logging.ErrorWithContext(a.logger, "instagram login failed", "login_failed",
			logging.String("failure", services.FailureKind(err)),
			logging.Error(err),
			logging.Hint(services.FailureHint(err)),
			logging.Impact("nothing is posted until login succeeds"),
		)
		return err
	}
	a.setLoggedIn(true)
	a.persistSession(ctx)
	a.logger.Info("login successful", logging.String("username", a.creds.Username))
	return nil
}

func (a *Account) restoreSession(ctx context.Context) bool {
	if a.sessionFile == "" {
		return false
	}
	data, err := os.ReadFile(a.sessionFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			a.logger.Warn("session file unreadable", logging.String("session_file", a.sessionFile), logging.Error(err))
		}
		return false
	}

	err = a.backend.Restore(ctx, data)
	if err == nil {
		_, err = a.backend.AccountInfo(ctx)
	}
	if err == nil {
		return true
	}

	logging.WarnWithContext(a.logger, "saved session invalid; attempting fresh login", "session_invalid",
		logging.String("session_file", a.sessionFile),
		logging.Error(err),
		logging.Impact("session file replaced after a fresh login"),
	)
	if removeErr := os.Remove(a.sessionFile); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) {
		a.logger.Warn("failed to remove stale session", logging.Error(removeErr))
	}
	return false
}

func (a *Account) persistSession(ctx context.Context) {
	if a.sessionFile == "" {
		return
	}
	data, err := a.backend.Export(ctx)
	if err == nil {
		err = fileutil.WriteFileAtomic(a.sessionFile, data, sessionFileMode)
	}
	if err != nil {
		logging.WarnWithContext(a.logger, "failed to save session", "session_save_failed",
			logging.String("session_file", a.sessionFile),
			logging.Error(err),
			logging.Impact("next run performs a full credential login"),
		)
		return
	}
	a.logger.Debug("session saved", logging.String("session_file", a.sessionFile))
}

// PostReel uploads the video with the caption. The file must exist and fit
// under the upload ceiling.
func (a *Account) PostReel(ctx context.Context, videoPath, caption string) (Media, error) {
	if !a.IsLoggedIn() {
		return Media{}, ErrNotLoggedIn
	}
	info, err := os.Stat(videoPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Media{}, services.Wrap(services.ErrNotFound, "platform", "upload", "video file not found: "+videoPath, err)
		}
		return Media{}, services.Wrap(services.ErrValidation, "platform", "upload", "stat video", err)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > float64(a.maxUploadMB) {
		return Media{}, services.Wrap(services.ErrValidation, "platform", "upload",
			fmt.Sprintf("video file too large: %.2fMB (max %dMB)", sizeMB, a.maxUploadMB), nil)
	}

	a.logger.Info("uploading reel",
		logging.String("video_path", videoPath),
		logging.SizeMB("size", info.Size()),
	)
	a.logger.Debug("caption preview", logging.String("caption", preview(caption, captionPreviewLength)))

	media, err := retry.Value(ctx, a.uploadPolicy, func(ctx context.Context) (Media, error) {
		file, err := os.Open(videoPath)
		if err != nil {
			return Media{}, services.Wrap(services.ErrNotFound, "platform", "upload", "open video", err)
		}
		defer file.Close()
		media, err := a.backend.UploadReel(ctx, file, caption)
		return media, ClassifyError("upload", err)
	})
	if err != nil {
		logging.ErrorWithContext(a.logger, "reel upload failed", "upload_failed",
			logging.String("failure", services.FailureKind(err)),
			logging.Error(err),
			logging.Hint(services.FailureHint(err)),
		)
		return Media{}, err
	}
	a.logger.Info("reel posted", logging.MediaID(media.ID), logging.String("code", media.Code))
	return media, nil
}

// DownloadProfilePicture saves the account's profile picture to dest,
// preferring the HD variant.
func (a *Account) DownloadProfilePicture(ctx context.Context, dest string) error {
	if !a.IsLoggedIn() {
		return ErrNotLoggedIn
	}
	err := retry.Do(ctx, a.profilePolicy, func(ctx context.Context) error {
		info, err := a.backend.AccountInfo(ctx)
		if err != nil {
			return ClassifyError("account info", err)
		}
		url := info.PictureURL()
		if url == "" {
			return services.Wrap(services.ErrNotFound, "platform", "profile picture", "account has no profile picture url", nil)
		}
		return a.download(ctx, url, dest)
	})
	if err != nil {
		logging.WarnWithContext(a.logger, "profile picture download failed", "profile_picture_failed",
			logging.Error(err),
			logging.Impact("a placeholder profile image is used"),
		)
		return err
	}
	a.logger.Info("profile picture saved", logging.Path(dest))
	return nil
}

func (a *Account) download(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, "platform", "profile picture", "build request", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &retry.StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "platform", "profile picture", "create directory", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "platform", "profile picture", "create temp file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.CopyBuffer(tmp, resp.Body, make([]byte, downloadChunkSize)); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, dest)
}

// Logout ends the session. The account is logged out afterwards even when
// the backend call fails.
func (a *Account) Logout(ctx context.Context) error {
	if !a.IsLoggedIn() {
		return nil
	}
	defer a.setLoggedIn(false)
	if err := a.backend.Logout(ctx); err != nil {
		a.logger.Warn("logout failed", logging.Error(err))
		return err
	}
	a.logger.Info("logged out")
	return nil
}

func preview(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
