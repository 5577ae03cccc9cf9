package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnvironment()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeInstagram()
	c.normalizeSchedule()
	c.normalizeContent()
	c.normalizeCaption()
	if err := c.normalizeReel(); err != nil {
		return err
	}
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

// applyEnvironment lets deployment environments override file values. Set
// variables win over the file, unset variables leave it alone.
func (c *Config) applyEnvironment() {
	lookup := func(key string, dst *string) {
		if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
			*dst = strings.TrimSpace(value)
		}
	}
	lookup("INSTAGRAM_USERNAME", &c.Instagram.Username)
	lookup("INSTAGRAM_PASSWORD", &c.Instagram.Password)
	lookup("NASA_API_KEY", &c.Content.NASAAPIKey)
	lookup("POSTING_TIME", &c.Schedule.PostingTime)
	lookup("PROFILE_PIC_PATH", &c.Reel.ProfilePicPath)
	lookup("LOGO_PATH", &c.Reel.LogoPath)
	lookup("NTFY_TOPIC", &c.Notifications.NtfyTopic)

	if value, ok := os.LookupEnv("USE_LOGO"); ok {
		if parsed, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			c.Reel.UseLogo = parsed
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.ArchiveDir, err = expandPath(strings.TrimSpace(c.Paths.ArchiveDir)); err != nil {
		return fmt.Errorf("paths.archive_dir: %w", err)
	}

	session := strings.TrimSpace(c.Instagram.SessionFile)
	if session == "" {
		session = filepath.Join(c.Paths.StateDir, defaultSessionFileName)
	}
	if c.Instagram.SessionFile, err = expandPath(session); err != nil {
		return fmt.Errorf("instagram.session_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeInstagram() {
	c.Instagram.Username = strings.TrimPrefix(strings.TrimSpace(c.Instagram.Username), "@")
	if c.Instagram.MaxUploadMB <= 0 {
		c.Instagram.MaxUploadMB = defaultMaxUploadMB
	}
}

func (c *Config) normalizeSchedule() {
	c.Schedule.PostingTime = strings.TrimSpace(c.Schedule.PostingTime)
	if c.Schedule.PostingTime == "" {
		c.Schedule.PostingTime = defaultPostingTime
	}
	days := make([]string, 0, len(c.Schedule.Days))
	for _, day := range c.Schedule.Days {
		day = strings.ToLower(strings.TrimSpace(day))
		if day != "" {
			days = append(days, day)
		}
	}
	c.Schedule.Days = days
	c.Schedule.Timezone = strings.TrimSpace(c.Schedule.Timezone)
	if c.Schedule.PollIntervalSeconds <= 0 {
		c.Schedule.PollIntervalSeconds = defaultPollIntervalSeconds
	}
}

func (c *Config) normalizeContent() {
	c.Content.NASAAPIKey = strings.TrimSpace(c.Content.NASAAPIKey)
	if c.Content.NASAAPIKey == "" {
		c.Content.NASAAPIKey = defaultNASAAPIKey
	}
	c.Content.APODURL = strings.TrimSpace(c.Content.APODURL)
	if c.Content.APODURL == "" {
		c.Content.APODURL = defaultAPODURL
	}
	c.Content.NewsFeedURL = strings.TrimSpace(c.Content.NewsFeedURL)
	if c.Content.NewsFeedURL == "" {
		c.Content.NewsFeedURL = defaultNewsFeedURL
	}
	c.Content.PreferredSource = strings.ToLower(strings.TrimSpace(c.Content.PreferredSource))
	if c.Content.PreferredSource == "" {
		c.Content.PreferredSource = defaultPreferredSource
	}
	if c.Content.CacheTTLSeconds < 0 {
		c.Content.CacheTTLSeconds = 0
	}
	if c.Content.RequestTimeoutSeconds <= 0 {
		c.Content.RequestTimeoutSeconds = defaultRequestTimeoutSeconds
	}
	c.Content.UserAgent = strings.TrimSpace(c.Content.UserAgent)
	if c.Content.UserAgent == "" {
		c.Content.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeCaption() {
	c.Caption.Handle = strings.TrimPrefix(strings.TrimSpace(c.Caption.Handle), "@")
	if c.Caption.Handle == "" {
		c.Caption.Handle = defaultCaptionHandle
	}
	tags := make([]string, 0, len(c.Caption.Hashtags))
	for _, tag := range c.Caption.Hashtags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if !strings.HasPrefix(tag, "#") {
			tag = "#" + tag
		}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		tags = append(tags, defaultHashtags...)
	}
	c.Caption.Hashtags = tags
	if c.Caption.MaxHashtags <= 0 {
		c.Caption.MaxHashtags = defaultMaxHashtags
	}
	if c.Caption.MaxBodyChars <= 0 {
		c.Caption.MaxBodyChars = defaultMaxBodyChars
	}
}

func (c *Config) normalizeReel() error {
	var err error
	if c.Reel.DurationSeconds <= 0 {
		c.Reel.DurationSeconds = defaultReelDurationSeconds
	}
	if c.Reel.FPS <= 0 {
		c.Reel.FPS = defaultReelFPS
	}
	if strings.TrimSpace(c.Reel.ProfilePicPath) == "" {
		c.Reel.ProfilePicPath = defaultProfilePicPath
	}
	if c.Reel.ProfilePicPath, err = expandPath(strings.TrimSpace(c.Reel.ProfilePicPath)); err != nil {
		return fmt.Errorf("reel.profile_pic_path: %w", err)
	}
	if strings.TrimSpace(c.Reel.LogoPath) == "" {
		c.Reel.LogoPath = defaultLogoPath
	}
	if c.Reel.LogoPath, err = expandPath(strings.TrimSpace(c.Reel.LogoPath)); err != nil {
		return fmt.Errorf("reel.logo_path: %w", err)
	}
	fonts := make([]string, 0, len(c.Reel.FontPaths))
	for _, font := range c.Reel.FontPaths {
		font = strings.TrimSpace(font)
		if font == "" {
			continue
		}
		expanded, err := expandPath(font)
		if err != nil {
			return fmt.Errorf("reel.font_paths: %w", err)
		}
		fonts = append(fonts, expanded)
	}
	c.Reel.FontPaths = fonts
	c.Reel.FFmpegBinary = strings.TrimSpace(c.Reel.FFmpegBinary)
	if c.Reel.FFmpegBinary == "" {
		c.Reel.FFmpegBinary = defaultFFmpegBinary
	}
	c.Reel.FFprobeBinary = strings.TrimSpace(c.Reel.FFprobeBinary)
	if c.Reel.FFprobeBinary == "" {
		c.Reel.FFprobeBinary = defaultFFprobeBinary
	}
	if c.Reel.EncodeTimeoutSeconds <= 0 {
		c.Reel.EncodeTimeoutSeconds = defaultEncodeTimeoutSeconds
	}
	if c.Reel.MinVideoMB <= 0 {
		c.Reel.MinVideoMB = defaultMinVideoMB
	}
	if c.Reel.KeepRecentFrames < 0 {
		c.Reel.KeepRecentFrames = defaultKeepRecentFrames
	}
	if c.Reel.KeepArchived < 0 {
		c.Reel.KeepArchived = 0
	}
	return nil
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNtfyRequestTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
