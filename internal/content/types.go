package content

import "time"

// Source identifies where a content item came from.
type Source string

const (
	SourceAPOD    Source = "apod"
	SourceNews    Source = "news"
	SourceDefault Source = "default"
)

// ParseSource maps a configuration value to a Source, defaulting to APOD.
func ParseSource(value string) Source {
	if Source(value) == SourceNews {
		return SourceNews
	}
	return SourceAPOD
}

// Item is one piece of fetched content. It is built once per run and
// discarded after the caption and frame are produced.
type Item struct {
	Source    Source
	Title     string
	Body      string
	ImageURL  string
	Link      string
	Date      string
	MediaType string
	FetchedAt time.Time
}

// Caption is the upload text together with the item it was built from.
type Caption struct {
	Text   string
	Source Source
	Title  string
}

// ReelContent is what the frame composer draws.
type ReelContent struct {
	Type        Source
	Title       string
	Text        string
	ImageURL    string
	Description string
}
