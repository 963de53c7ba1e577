// Package preview turns uploaded HTML into short text excerpts for listings.
package preview

import (
	"strings"
	"unicode/utf8"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
)

// DefaultExcerptLength is the excerpt size used by catalog listings, in runes.
const DefaultExcerptLength = 160

const ellipsis = "…"

// Excerpt converts html to Markdown, folds it onto one line and cuts it to
// at most maxRunes runes (plus an ellipsis when cut). Content that cannot be
// converted yields an empty excerpt; the artifact itself is never rejected.
func Excerpt(html string, maxRunes int) string {
	if strings.TrimSpace(html) == "" || maxRunes <= 0 {
		return ""
	}

	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return ""
	}

	text := strings.Join(strings.Fields(markdown), " ")
	if utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	return strings.TrimSpace(string(runes[:maxRunes])) + ellipsis
}
