package extract

import (
	"bytes"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Extractor turns raw HTML into a Document.
type Extractor interface {
	Extract(pageURL string, input []byte) Document
}

// ReadabilityExtractor isolates the main article with go-readability. Pages
// readability cannot handle fall back to FromHTML.
type ReadabilityExtractor struct{}

func (ReadabilityExtractor) Extract(pageURL string, input []byte) Document {
	u, err := url.Parse(pageURL)
	if err != nil {
		return FromHTML(input)
	}
	article, err := readability.FromReader(bytes.NewReader(input), u)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		return FromHTML(input)
	}
	text := textOf(article.Content)
	if text == "" {
		return FromHTML(input)
	}
	title := CleanTitle(article.Title)
	if title == "" {
		title = Title(input)
	}
	return Document{Title: title, Text: text}
}
