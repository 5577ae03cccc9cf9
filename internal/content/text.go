package content

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const ellipsis = "..."

var tagPattern = regexp.MustCompile(`<[^<]+?>`)

// CleanText strips markup tags, decodes HTML entities, normalizes to NFC and
// collapses whitespace. Angle brackets left over after decoding are dropped
// so captions never carry markup.
func CleanText(text string) string {
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = tagPattern.ReplaceAllString(text, " ")
	text = strings.NewReplacer("<", "", ">", "").Replace(text)
	text = norm.NFC.String(text)
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens text to at most budget runes, ending on the last whole
// word followed by "...". Text within the budget is returned unchanged.
func Truncate(text string, budget int) string {
	runes := []rune(text)
	if budget <= 0 || len(runes) <= budget {
		return text
	}
	limit := budget - len([]rune(ellipsis))
	if limit <= 0 {
		return string(runes[:budget])
	}
	cut := runes[:limit]
	if !unicode.IsSpace(runes[limit]) {
		if idx := lastSpace(cut); idx > 0 {
			cut = cut[:idx]
		}
	}
	return strings.TrimRightFunc(string(cut), unicode.IsSpace) + ellipsis
}

func lastSpace(runes []rune) int {
	for i := len(runes) - 1; i >= 0; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}
