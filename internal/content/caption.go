package content

import (
	"context"
	"fmt"
	"strings"

	"skyreel/internal/logging"
)

const (
	fallbackTitle = "Amazing Space Discovery"
	fallbackBody  = "The universe is full of wonders waiting to be discovered! 🌌✨"

	defaultReelTitle       = "Space Discovery"
	defaultReelText        = "Exploring the Universe"
	defaultReelDescription = "The cosmos awaits!"

	defaultMaxHashtags  = 10
	defaultMaxBodyChars = 2000
)

// BuildCaption formats an item as upload text: title, cleaned body, call to
// action and the hashtag block.
func (c *Client) BuildCaption(item Item) string {
	title := CleanText(item.Title)
	if title == "" {
		title = fallbackTitle
	}
	body := Truncate(CleanText(item.Body), c.maxBodyChars())
	if body == "" {
		body = fallbackBody
	}

	var b strings.Builder
	b.WriteString("🚀 ")
	b.WriteString(title)
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n\n")
	if handle := strings.TrimPrefix(strings.TrimSpace(c.cfg.Handle), "@"); handle != "" {
		fmt.Fprintf(&b, "Follow @%s for daily space updates! 🌌✨\n\n", handle)
	}
	b.WriteString(c.HashtagBlock())
	return strings.TrimRight(b.String(), "\n")
}

// HashtagBlock returns the first configured hashtags joined by spaces.
func (c *Client) HashtagBlock() string {
	limit := c.cfg.MaxHashtags
	if limit <= 0 {
		limit = defaultMaxHashtags
	}
	tags := c.cfg.Hashtags
	if len(tags) > limit {
		tags = tags[:limit]
	}
	return strings.Join(tags, " ")
}

func (c *Client) maxBodyChars() int {
	if c.cfg.MaxBodyChars > 0 {
		return c.cfg.MaxBodyChars
	}
	return defaultMaxBodyChars
}

// GenerateCaption builds the caption from the preferred source, falling back
// to the other source and finally to a fixed placeholder. It never fails.
func (c *Client) GenerateCaption(ctx context.Context, preferred Source) Caption {
	order := []Source{SourceAPOD, SourceNews}
	if preferred == SourceNews {
		order = []Source{SourceNews, SourceAPOD}
	}
	for _, source := range order {
		item, err := c.fetch(ctx, source)
		if err != nil {
			logging.WarnWithContext(c.logger, "caption source unavailable", "caption_source_failed",
				logging.String("source", string(source)),
				logging.Error(err),
				logging.Impact("caption falls back to the next source"),
			)
			continue
		}
		return Caption{Text: c.BuildCaption(item), Source: source, Title: CleanText(item.Title)}
	}
	placeholder := Item{Source: SourceDefault, Title: fallbackTitle, Body: fallbackBody}
	return Caption{Text: c.BuildCaption(placeholder), Source: SourceDefault, Title: fallbackTitle}
}

// ContentForReel picks what the frame shows: APOD when it carries an image,
// otherwise the latest news, otherwise fixed default text.
func (c *Client) ContentForReel(ctx context.Context) ReelContent {
	apod, err := c.FetchDailyPicture(ctx)
	if err == nil && apod.ImageURL != "" {
		return ReelContent{
			Type:        SourceAPOD,
			Title:       CleanText(apod.Title),
			Text:        CleanText(apod.Title),
			ImageURL:    apod.ImageURL,
			Description: Truncate(CleanText(apod.Body), reelDescriptionMax),
		}
	}
	if err != nil {
		c.logger.Debug("apod unavailable for reel", logging.Error(err))
	}

	news, err := c.FetchLatestNews(ctx)
	if err == nil {
		return ReelContent{
			Type:        SourceNews,
			Title:       CleanText(news.Title),
			Text:        CleanText(news.Title),
			ImageURL:    news.ImageURL,
			Description: Truncate(CleanText(news.Body), reelDescriptionMax),
		}
	}
	logging.WarnWithContext(c.logger, "no content source available; using default reel text", "reel_content_default",
		logging.Error(err),
		logging.Impact("reel shows generic text"),
	)
	return ReelContent{
		Type:        SourceDefault,
		Title:       defaultReelTitle,
		Text:        defaultReelText,
		Description: defaultReelDescription,
	}
}

func (c *Client) fetch(ctx context.Context, source Source) (Item, error) {
	if source == SourceNews {
		return c.FetchLatestNews(ctx)
	}
	return c.FetchDailyPicture(ctx)
}
