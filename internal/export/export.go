// Package export writes a user's bookmarks as JSON, Markdown or PDF.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperifyio/bookmarkd/internal/store"
)

// Format names an export encoding.
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatPDF      Format = "pdf"
)

// ParseFormat accepts json, md/markdown and pdf. Empty means JSON.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "pdf":
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	case FormatPDF:
		return "application/pdf"
	default:
		return "application/json"
	}
}

// Extension returns the file extension for f without the dot.
func (f Format) Extension() string { return string(f) }

// Write encodes bookmarks in format f. Bookmarks are written in the order
// given.
func Write(w io.Writer, f Format, title string, bookmarks []store.Bookmark) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if bookmarks == nil {
			bookmarks = []store.Bookmark{}
		}
		return enc.Encode(bookmarks)
	case FormatMarkdown:
		_, err := io.WriteString(w, Markdown(title, bookmarks))
		return err
	case FormatPDF:
		return writePDF(w, Markdown(title, bookmarks))
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// Markdown renders a heading followed by one section per bookmark with a
// link, tags and summary.
func Markdown(title string, bookmarks []store.Bookmark) string {
	var b strings.Builder
	if title == "" {
		title = "Bookmarks"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	for _, bm := range bookmarks {
		name := strings.TrimSpace(bm.Title)
		if name == "" {
			name = bm.URL
		}
		fmt.Fprintf(&b, "## %s\n\n", escapeLinkText(name))
		fmt.Fprintf(&b, "[%s](%s)\n\n", escapeLinkText(bm.URL), bm.URL)
		if len(bm.Tags) > 0 {
			fmt.Fprintf(&b, "Tags: %s\n\n", strings.Join(bm.Tags, ", "))
		}
		if s := strings.TrimSpace(bm.Summary); s != "" {
			b.WriteString(s)
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// escapeLinkText keeps brackets in titles from breaking link syntax.
func escapeLinkText(s string) string {
	return strings.NewReplacer("[", "(", "]", ")").Replace(s)
}
