package summary

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	styleRe  = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	tagRe    = regexp.MustCompile(`<[^>]+>`)
	spaceRe  = regexp.MustCompile(`[\s\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)
	entities = strings.NewReplacer("&nbsp;", " ", "&#160;", " ", "&amp;", "&")
)

// Ellipsis is appended to text cut by Truncate.
const Ellipsis = "…"

// NormalizeURL prefixes https:// unless raw already starts with http:// or
// https:// in any letter case.
func NormalizeURL(raw string) string {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return raw
	}
	return "https://" + raw
}

// StripHTML reduces a raw page to plain text: script and style blocks go
// first, then every remaining tag; &nbsp;, &#160; and &amp; are decoded and
// whitespace runs collapse to one space.
func StripHTML(raw string) string {
	s := scriptRe.ReplaceAllString(raw, " ")
	s = styleRe.ReplaceAllString(s, " ")
	s = tagRe.ReplaceAllString(s, " ")
	s = entities.Replace(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Truncate keeps at most max characters of text and appends Ellipsis when
// anything was cut. max <= 0 disables truncation.
func Truncate(text string, max int) string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return text
	}
	n := 0
	for i := range text {
		if n == max {
			return text[:i] + Ellipsis
		}
		n++
	}
	return text
}
