package content

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"skyreel/internal/config"
	"skyreel/internal/logging"
	"skyreel/internal/retry"
)

const (
	defaultTimeout     = 10 * time.Second
	defaultUserAgent   = "skyreel/0.1"
	newsCacheKey       = "space_news"
	apodCacheKeyPrefix = "nasa_apod_"
	reelDescriptionMax = 150
)

// Config contains the settings the content client needs.
type Config struct {
	APODURL      string
	APIKey       string
	FeedURL      string
	CacheTTL     time.Duration
	Timeout      time.Duration
	UserAgent    string
	Handle       string
	Hashtags     []string
	MaxHashtags  int
	MaxBodyChars int
	Location     *time.Location
}

// ConfigFromApp extracts the content settings from the application config.
func ConfigFromApp(cfg *config.Config) Config {
	return Config{
		APODURL:      cfg.Content.APODURL,
		APIKey:       cfg.Content.NASAAPIKey,
		FeedURL:      cfg.Content.NewsFeedURL,
		CacheTTL:     cfg.CacheTTL(),
		Timeout:      cfg.RequestTimeout(),
		UserAgent:    cfg.Content.UserAgent,
		Handle:       cfg.Caption.Handle,
		Hashtags:     cfg.Caption.Hashtags,
		MaxHashtags:  cfg.Caption.MaxHashtags,
		MaxBodyChars: cfg.Caption.MaxBodyChars,
		Location:     cfg.Location(),
	}
}

// Client fetches APOD and news content and builds captions from it.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *Cache
	now        func() time.Time
	logger     *slog.Logger
	apodPolicy retry.Policy
	newsPolicy retry.Policy
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client (useful for tests).
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source used for cache keys and expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		c.apodPolicy.Sleep = sleep
		c.newsPolicy.Sleep = sleep
	}
}

// NewClient constructs a content client.
func NewClient(cfg Config, opts ...Option) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
		apodPolicy: retry.Policy{Attempts: 3, Delay: 2 * time.Second, Operation: "fetch apod"},
		newsPolicy: retry.Policy{Attempts: 2, Delay: 2 * time.Second, Operation: "fetch news"},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.NewComponentLogger(c.logger, "content")
	c.apodPolicy.Logger = c.logger
	c.newsPolicy.Logger = c.logger
	c.cache = NewCache(cfg.CacheTTL, c.now)
	return c
}

// Cache exposes the client's item cache.
func (c *Client) Cache() *Cache {
	return c.cache
}

func (c *Client) apodCacheKey() string {
	return apodCacheKeyPrefix + c.now().In(c.cfg.Location).Format("2006-01-02")
}
