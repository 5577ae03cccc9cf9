package content

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"skyreel/internal/logging"
	"skyreel/internal/retry"
	"skyreel/internal/services"
)

type apodResponse struct {
	Title        string `json:"title"`
	Explanation  string `json:"explanation"`
	URL          string `json:"url"`
	HDURL        string `json:"hdurl"`
	MediaType    string `json:"media_type"`
	ThumbnailURL string `json:"thumbnail_url"`
	Date         string `json:"date"`
}

// FetchDailyPicture returns today's Astronomy Picture of the Day. Results are
// cached per local date for the configured TTL.
func (c *Client) FetchDailyPicture(ctx context.Context) (Item, error) {
	key := c.apodCacheKey()
	if item, ok := c.cache.Get(key); ok {
		c.logger.Debug("apod cache hit", logging.String("cache_key", key))
		return item, nil
	}

	item, err := retry.Value(ctx, c.apodPolicy, c.fetchAPODOnce)
	if err != nil {
		return Item{}, wrapFetchError("fetch apod", err)
	}
	c.cache.Set(key, item)
	c.logger.Info("fetched apod",
		logging.String("title", item.Title),
		logging.String("date", item.Date),
		logging.String("media_type", item.MediaType),
	)
	return item, nil
}

func (c *Client) fetchAPODOnce(ctx context.Context) (Item, error) {
	endpoint, err := url.Parse(c.cfg.APODURL)
	if err != nil {
		return Item{}, services.Wrap(services.ErrConfiguration, "content", "parse apod url", c.cfg.APODURL, err)
	}
	query := endpoint.Query()
	query.Set("api_key", c.cfg.APIKey)
	query.Set("thumbs", "true")
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return Item{}, services.Wrap(services.ErrConfiguration, "content", "build apod request", "", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Item{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Item{}, &retry.StatusError{
			StatusCode: resp.StatusCode,
			URL:        c.cfg.APODURL,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var payload apodResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Item{}, services.Wrap(services.ErrValidation, "content", "decode apod", "", err)
	}
	if strings.TrimSpace(payload.Title) == "" {
		return Item{}, services.Wrap(services.ErrValidation, "content", "decode apod", "response has no title", nil)
	}

	image := payload.URL
	if strings.EqualFold(payload.MediaType, "video") {
		image = payload.ThumbnailURL
	}
	return Item{
		Source:    SourceAPOD,
		Title:     strings.TrimSpace(payload.Title),
		Body:      payload.Explanation,
		ImageURL:  strings.TrimSpace(image),
		Link:      payload.HDURL,
		Date:      payload.Date,
		MediaType: payload.MediaType,
		FetchedAt: c.now(),
	}, nil
}

// wrapFetchError tags a failed fetch so callers can tell a flaky network from
// a source that answered with something unusable.
func wrapFetchError(operation string, err error) error {
	if services.IsPermanent(err) {
		return fmt.Errorf("content: %s: %w", operation, err)
	}
	marker := services.ErrTransient
	if !retry.IsRetryable(err) {
		marker = services.ErrValidation
	}
	return services.Wrap(marker, "content", operation, "", err)
}
