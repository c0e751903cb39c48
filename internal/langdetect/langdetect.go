// Package langdetect guesses the language of a summary so bookmarks can be
// grouped or filtered by it.
package langdetect

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

// minChars is the shortest text worth classifying; shorter input is too
// ambiguous to label.
const minChars = 20

// Detector returns an ISO 639-1 code, or "" when unsure.
type Detector interface {
	Detect(text string) string
}

// Lingua detects among a fixed set of common languages. The underlying
// models are loaded on first use.
type Lingua struct {
	Languages []lingua.Language

	once     sync.Once
	detector lingua.LanguageDetector
}

// DefaultLanguages covers the languages bookmarks are most often saved in.
var DefaultLanguages = []lingua.Language{
	lingua.English, lingua.German, lingua.French, lingua.Spanish,
	lingua.Portuguese, lingua.Italian, lingua.Dutch, lingua.Finnish,
	lingua.Swedish, lingua.Polish, lingua.Russian, lingua.Japanese, lingua.Chinese,
}

func (l *Lingua) Detect(text string) string {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minChars {
		return ""
	}
	l.once.Do(func() {
		langs := l.Languages
		if len(langs) < 2 {
			langs = DefaultLanguages
		}
		l.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(langs...).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	lang, ok := l.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}

// Nop never detects anything.
type Nop struct{}

func (Nop) Detect(string) string { return "" }
