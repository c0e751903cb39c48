// Package extract reduces fetched pages to the text a summarizer reads and
// the title a bookmark shows.
package extract

import (
	"bytes"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// Document is the readable part of a page.
type Document struct {
	Title string
	Text  string
}

// chrome is removed before text is collected.
const chrome = "script, style, noscript, template, iframe, svg, nav, footer, aside, form, " +
	"[id*=cookie], [class*=cookie], [id*=consent], [class*=consent], [class*=gdpr], [role=dialog]"

// FromHTML takes the text of the first <main>, <article> or <body> with page
// chrome and consent banners removed.
func FromHTML(input []byte) Document {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return Document{}
	}
	root := doc.Find("main").First()
	if root.Length() == 0 {
		root = doc.Find("article").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}
	root.Find(chrome).Remove()
	markup, err := root.Html()
	if err != nil {
		return Document{Title: titleOf(doc)}
	}
	return Document{Title: titleOf(doc), Text: textOf(markup)}
}

// Title returns the page's <title>, or og:title when that is missing.
func Title(input []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(input))
	if err != nil {
		return ""
	}
	return titleOf(doc)
}

func titleOf(doc *goquery.Document) string {
	if t := CleanTitle(doc.Find("title").First().Text()); t != "" {
		return t
	}
	og, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	return CleanTitle(og)
}

// CleanTitle collapses whitespace and normalises to NFC so visually equal
// titles compare equal.
func CleanTitle(s string) string {
	return norm.NFC.String(collapseSpaces(strings.TrimSpace(s)))
}

var blockEnds = strings.NewReplacer(
	"</p>", "</p>\n", "</li>", "</li>\n", "</tr>", "</tr>\n", "</div>", "</div>\n",
	"</h1>", "</h1>\n", "</h2>", "</h2>\n", "</h3>", "</h3>\n",
	"</h4>", "</h4>\n", "</h5>", "</h5>\n", "</h6>", "</h6>\n",
	"<br>", "<br>\n", "<br/>", "<br/>\n",
)

// textOf flattens an HTML fragment to one line per block, NFC normalised.
func textOf(markup string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(blockEnds.Replace(markup)))
	if err != nil {
		return ""
	}
	return norm.NFC.String(squeezeLines(doc.Text()))
}

// squeezeLines trims every line, collapses inner whitespace and drops blank
// lines.
func squeezeLines(s string) string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = collapseSpaces(strings.TrimSpace(line)); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

func collapseSpaces(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}
