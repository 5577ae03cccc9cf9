package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains working directory configuration.
type Paths struct {
	OutputDir  string `toml:"output_dir"`
	StateDir   string `toml:"state_dir"`
	LogDir     string `toml:"log_dir"`
	ArchiveDir string `toml:"archive_dir"`
}

// Instagram contains account credentials and upload limits.
type Instagram struct {
	Username    string `toml:"username"`
	Password    string `toml:"password"`
	SessionFile string `toml:"session_file"`
	MaxUploadMB int    `toml:"max_upload_mb"`
}

// Schedule controls when the daemon posts.
type Schedule struct {
	PostingTime         string   `toml:"posting_time"`
	Days                []string `toml:"days"`
	Timezone            string   `toml:"timezone"`
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	SkipIfPostedToday   bool     `toml:"skip_if_posted_today"`
}

// Content contains settings for the APOD and news sources.
type Content struct {
	NASAAPIKey            string `toml:"nasa_api_key"`
	APODURL               string `toml:"apod_url"`
	NewsFeedURL           string `toml:"news_feed_url"`
	PreferredSource       string `toml:"preferred_source"`
	CacheTTLSeconds       int    `toml:"cache_ttl_seconds"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	UserAgent             string `toml:"user_agent"`
}

// Caption contains caption layout settings.
type Caption struct {
	Handle       string   `toml:"handle"`
	Hashtags     []string `toml:"hashtags"`
	MaxHashtags  int      `toml:"max_hashtags"`
	MaxBodyChars int      `toml:"max_body_chars"`
}

// Reel contains frame composition and encoding settings.
type Reel struct {
	DurationSeconds      int      `toml:"duration_seconds"`
	FPS                  int      `toml:"fps"`
	ProfilePicPath       string   `toml:"profile_pic_path"`
	UseLogo              bool     `toml:"use_logo"`
	LogoPath             string   `toml:"logo_path"`
	FontPaths            []string `toml:"font_paths"`
	FFmpegBinary         string   `toml:"ffmpeg_binary"`
	FFprobeBinary        string   `toml:"ffprobe_binary"`
	EncodeTimeoutSeconds int      `toml:"encode_timeout_seconds"`
	MinVideoMB           float64  `toml:"min_video_mb"`
	KeepRecentFrames     int      `toml:"keep_recent_frames"`
	KeepArchived         int      `toml:"keep_archived"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	Posted         bool   `toml:"posted"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for skyreel.
//
// Configuration sections by subsystem:
//   - Paths: output, state, log and archive directories
//   - Instagram: account credentials, session file, upload ceiling
//   - Schedule: posting time, weekdays, poll interval
//   - Content: APOD and news feed endpoints, cache TTL
//   - Caption: handle, hashtags, body budget
//   - Reel: canvas timing, images, fonts, encoder binaries
//   - Notifications: ntfy push notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Instagram     Instagram     `toml:"instagram"`
	Schedule      Schedule      `toml:"schedule"`
	Content       Content       `toml:"content"`
	Caption       Caption       `toml:"caption"`
	Reel          Reel          `toml:"reel"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/skyreel/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized. A .env file in the working directory is
// loaded first so its values participate in environment overrides.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, "", false, fmt.Errorf("load .env: %w", err)
	}

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("skyreel.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir, c.Paths.StateDir, c.Paths.LogDir}
	if c.Paths.ArchiveDir != "" {
		dirs = append(dirs, c.Paths.ArchiveDir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryDBPath returns the location of the post history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the scheduler single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "skyreel.lock")
}

// LogPath returns the append-mode log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.LogDir, "skyreel.log")
}

// CacheTTL returns the content cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Content.CacheTTLSeconds) * time.Second
}

// RequestTimeout returns the per-request HTTP timeout for content sources.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Content.RequestTimeoutSeconds) * time.Second
}

// ReelDuration returns the encoded video length.
func (c *Config) ReelDuration() time.Duration {
	return time.Duration(c.Reel.DurationSeconds) * time.Second
}

// EncodeTimeout returns the ffmpeg encode deadline.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.Reel.EncodeTimeoutSeconds) * time.Second
}

// PollInterval returns how often the scheduler checks the clock.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Schedule.PollIntervalSeconds) * time.Second
}

// Location resolves the schedule timezone, defaulting to local time.
func (c *Config) Location() *time.Location {
	if c.Schedule.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Schedule.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
