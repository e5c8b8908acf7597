package postservice

import (
	"bytes"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ExcerptWords is the number of words kept in a home page excerpt.
const ExcerptWords = 20

// Raw HTML in content is omitted from the output since WithUnsafe is not set.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// Excerpt returns the first n words of content followed by an ellipsis.
func Excerpt(content string, n int) string {
	words := strings.Fields(content)
	if len(words) > n {
		words = words[:n]
	}

	return strings.Join(words, " ") + "..."
}

// RenderMarkdown converts post content to HTML.
func RenderMarkdown(content string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(content), &buf); err != nil {
		return "", err
	}

	return buf.String(), nil
}

func summarize(p Post) PostSummary {
	return PostSummary{
		ID:        p.ID,
		Title:     p.Title,
		Excerpt:   Excerpt(p.Content, ExcerptWords),
		CreatedAt: p.CreatedAt,
	}
}
