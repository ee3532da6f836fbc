package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	// StrictPolicy removes all HTML tags and attributes.
	// Use for fields that should only contain plain text (titles, slugs, labels).
	StrictPolicy = bluemonday.StrictPolicy()

	// ContentPolicy allows the formatting the page editor emits: headings,
	// paragraphs, lists, links, emphasis, images and tables. Script, iframe,
	// event handlers and inline style are stripped.
	ContentPolicy = newContentPolicy()
)

func newContentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("h1", "h2", "h3", "h4", "figure", "figcaption", "table", "thead", "tbody", "tr", "th", "td")
	p.AllowAttrs("alt", "title", "width", "height").OnElements("img")
	p.AllowAttrs("class").OnElements("p", "div", "span", "table")
	return p
}

// Text strips all HTML tags and returns plain text.
// Use for: page titles, navigation labels, SEO fields.
func Text(input string) string {
	return StrictPolicy.Sanitize(input)
}

// HTML sanitizes editor-produced HTML, keeping safe formatting tags.
// Use for: page bodies, post bodies, campaign bodies.
func HTML(input string) string {
	return ContentPolicy.Sanitize(input)
}

// TextSlice sanitizes each string in a slice, removing all HTML.
func TextSlice(inputs []string) []string {
	if inputs == nil {
		return nil
	}
	sanitized := make([]string, len(inputs))
	for i, input := range inputs {
		sanitized[i] = Text(input)
	}
	return sanitized
}
