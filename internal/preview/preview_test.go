package preview

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestExcerpt_FlattensMarkup(t *testing.T) {
	got := Excerpt("<h1>Keynote</h1>\n<p>Hello   <b>world</b></p>", 100)

	assert.Contains(t, got, "Keynote")
	assert.Contains(t, got, "Hello")
	assert.Contains(t, got, "world")
	assert.NotContains(t, got, "\n")
	assert.NotContains(t, got, "<p>")
}

func TestExcerpt_Truncates(t *testing.T) {
	html := "<p>" + strings.Repeat("あ", 300) + "</p>"

	got := Excerpt(html, 20)

	assert.Equal(t, 21, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, "…"))
}

func TestExcerpt_Empty(t *testing.T) {
	assert.Empty(t, Excerpt("", 10))
	assert.Empty(t, Excerpt("   ", 10))
	assert.Empty(t, Excerpt("<p>text</p>", 0))
}
