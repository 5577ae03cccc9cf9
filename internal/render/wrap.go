package render

import "strings"

// WrapText breaks text into lines no wider than maxWidth according to
// measure. Words are placed greedily; a word wider than maxWidth on its own
// is split between runes. A single rune wider than maxWidth still gets its
// own line.
func WrapText(text string, maxWidth float64, measure func(string) float64) []string {
	var lines []string
	current := ""
	for _, word := range strings.Fields(text) {
		candidate := word
		if current != "" {
			candidate = current + " " + word
		}
		if measure(candidate) <= maxWidth {
			current = candidate
			continue
		}
		if current != "" {
			lines = append(lines, current)
			current = ""
		}
		if measure(word) <= maxWidth {
			current = word
			continue
		}
		pieces := splitWord(word, maxWidth, measure)
		lines = append(lines, pieces[:len(pieces)-1]...)
		current = pieces[len(pieces)-1]
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}

func splitWord(word string, maxWidth float64, measure func(string) float64) []string {
	var pieces []string
	var chunk []rune
	for _, r := range word {
		next := append(chunk, r)
		if len(chunk) > 0 && measure(string(next)) > maxWidth {
			pieces = append(pieces, string(chunk))
			chunk = []rune{r}
			continue
		}
		chunk = next
	}
	return append(pieces, string(chunk))
}
