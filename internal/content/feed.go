package content

import (
	"context"
	"errors"
	"strings"

	"github.com/mmcdole/gofeed"

	"skyreel/internal/logging"
	"skyreel/internal/retry"
	"skyreel/internal/services"
)

// FetchLatestNews returns the first entry of the configured news feed.
func (c *Client) FetchLatestNews(ctx context.Context) (Item, error) {
	if item, ok := c.cache.Get(newsCacheKey); ok {
		c.logger.Debug("news cache hit", logging.String("cache_key", newsCacheKey))
		return item, nil
	}

	item, err := retry.Value(ctx, c.newsPolicy, c.fetchNewsOnce)
	if err != nil {
		return Item{}, wrapFetchError("fetch news", err)
	}
	c.cache.Set(newsCacheKey, item)
	c.logger.Info("fetched news", logging.String("title", item.Title), logging.String("link", item.Link))
	return item, nil
}

func (c *Client) fetchNewsOnce(ctx context.Context) (Item, error) {
	parser := gofeed.NewParser()
	parser.Client = c.httpClient
	parser.UserAgent = c.cfg.UserAgent

	feed, err := parser.ParseURLWithContext(c.cfg.FeedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return Item{}, &retry.StatusError{StatusCode: httpErr.StatusCode, URL: c.cfg.FeedURL}
		}
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return Item{}, services.Wrap(services.ErrValidation, "content", "parse feed", c.cfg.FeedURL, err)
		}
		return Item{}, err
	}
	if feed == nil || len(feed.Items) == 0 || feed.Items[0] == nil {
		return Item{}, services.Wrap(services.ErrNotFound, "content", "parse feed", "feed has no entries", nil)
	}

	entry := feed.Items[0]
	body := entry.Description
	if strings.TrimSpace(body) == "" {
		body = entry.Content
	}
	item := Item{
		Source:    SourceNews,
		Title:     strings.TrimSpace(entry.Title),
		Body:      body,
		ImageURL:  feedImage(entry),
		Link:      entry.Link,
		FetchedAt: c.now(),
	}
	if entry.PublishedParsed != nil {
		item.Date = entry.PublishedParsed.In(c.cfg.Location).Format("2006-01-02")
	} else {
		item.Date = entry.Published
	}
	return item, nil
}

func feedImage(entry *gofeed.Item) string {
	if entry.Image != nil && strings.TrimSpace(entry.Image.URL) != "" {
		return strings.TrimSpace(entry.Image.URL)
	}
	for _, enclosure := range entry.Enclosures {
		if enclosure == nil {
			continue
		}
		if strings.HasPrefix(enclosure.Type, "image/") && enclosure.URL != "" {
			return enclosure.URL
		}
	}
	return ""
}
