// Package content fetches the day's space content and turns it into caption
// text and reel copy.
//
// Two sources are supported: NASA's Astronomy Picture of the Day JSON API and
// the first entry of an RSS or Atom news feed (parsed with gofeed). Fetches
// are retried for transient failures and cached in memory per local date.
// Caption generation and reel content selection never fail; when every
// source is down they fall back to fixed placeholder text.
package content
