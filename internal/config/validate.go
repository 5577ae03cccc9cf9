package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday, "sunday": time.Sunday,
	"mon": time.Monday, "monday": time.Monday,
	"tue": time.Tuesday, "tuesday": time.Tuesday,
	"wed": time.Wednesday, "wednesday": time.Wednesday,
	"thu": time.Thursday, "thursday": time.Thursday,
	"fri": time.Friday, "friday": time.Friday,
	"sat": time.Saturday, "saturday": time.Saturday,
}

// Validate ensures the configuration is usable. Credentials are checked
// separately by ValidateCredentials so read-only commands work without them.
func (c *Config) Validate() error {
	if err := c.validateSchedule(); err != nil {
		return err
	}
	if err := c.validateContent(); err != nil {
		return err
	}
	if err := c.validateReel(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return ensurePositiveMap(map[string]int{
		"instagram.max_upload_mb":         c.Instagram.MaxUploadMB,
		"notifications.request_timeout":   c.Notifications.RequestTimeout,
		"content.request_timeout_seconds": c.Content.RequestTimeoutSeconds,
		"caption.max_body_chars":          c.Caption.MaxBodyChars,
	})
}

// ValidateCredentials reports whether the Instagram account is configured.
func (c *Config) ValidateCredentials() error {
	if c.Instagram.Username == "" || c.Instagram.Password == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/skyreel/config.toml"
		}
		return fmt.Errorf("instagram.username and instagram.password are required. Set INSTAGRAM_USERNAME/INSTAGRAM_PASSWORD or edit %s (create with 'skyreel config init')", defaultPath)
	}
	return nil
}

// PostingClock parses schedule.posting_time into hour and minute.
func (c *Config) PostingClock() (int, int, error) {
	return parseClock(c.Schedule.PostingTime)
}

// PostingDays returns the configured weekdays; empty means every day.
func (c *Config) PostingDays() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(c.Schedule.Days))
	for _, name := range c.Schedule.Days {
		day, ok := weekdayNames[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("schedule.days: unknown weekday %q", name)
		}
		days = append(days, day)
	}
	return days, nil
}

func (c *Config) validateSchedule() error {
	if _, _, err := c.PostingClock(); err != nil {
		return err
	}
	if _, err := c.PostingDays(); err != nil {
		return err
	}
	if c.Schedule.Timezone != "" {
		if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
			return fmt.Errorf("schedule.timezone: %w", err)
		}
	}
	if c.Schedule.PollIntervalSeconds <= 0 {
		return errors.New("schedule.poll_interval_seconds must be positive")
	}
	return nil
}

func (c *Config) validateContent() error {
	switch c.Content.PreferredSource {
	case "apod", "news":
	default:
		return fmt.Errorf("content.preferred_source must be \"apod\" or \"news\", got %q", c.Content.PreferredSource)
	}
	if !strings.HasPrefix(c.Content.APODURL, "http://") && !strings.HasPrefix(c.Content.APODURL, "https://") {
		return fmt.Errorf("content.apod_url must be an http(s) URL, got %q", c.Content.APODURL)
	}
	if !strings.HasPrefix(c.Content.NewsFeedURL, "http://") && !strings.HasPrefix(c.Content.NewsFeedURL, "https://") {
		return fmt.Errorf("content.news_feed_url must be an http(s) URL, got %q", c.Content.NewsFeedURL)
	}
	return nil
}

func (c *Config) validateReel() error {
	if c.Reel.FPS > 120 {
		return errors.New("reel.fps must be between 1 and 120")
	}
	if c.Reel.DurationSeconds > 90 {
		return errors.New("reel.duration_seconds must be between 1 and 90")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be \"console\" or \"json\", got %q", c.Logging.Format)
	}
	return nil
}

func parseClock(value string) (int, int, error) {
	hourText, minuteText, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok {
		return 0, 0, fmt.Errorf("schedule.posting_time must be HH:MM, got %q", value)
	}
	hour, err := strconv.Atoi(hourText)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("schedule.posting_time hour out of range in %q", value)
	}
	minute, err := strconv.Atoi(minuteText)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("schedule.posting_time minute out of range in %q", value)
	}
	return hour, minute, nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
