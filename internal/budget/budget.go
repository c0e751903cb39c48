// Package budget sizes page text so a chat summarization request stays
// inside the model's context window.
package budget

import (
	"math"
	"strings"
)

const (
	// charsPerToken is a conservative average for English prose.
	charsPerToken = 4
	// defaultContext applies to models we know nothing about.
	defaultContext = 8192
	// minHeadroom is subtracted from every window for message framing.
	minHeadroom = 512
	// MaxInputChars caps page text even for very large windows; summaries do
	// not improve past a few pages of text.
	MaxInputChars = 48000
	// MinInputChars is never undercut so tiny windows still see the lead.
	MinInputChars = 1000
)

// EstimateTokens returns a rounded-up token estimate for s.
func EstimateTokens(s string) int {
	n := len(s)
	if n <= 0 {
		return 0
	}
	return int(math.Ceil(float64(n) / charsPerToken))
}

// ModelContextTokens guesses the context window of modelName.
func ModelContextTokens(modelName string) int {
	name := strings.ToLower(strings.TrimSpace(modelName))
	if name == "" {
		return defaultContext
	}
	if v, ok := knownModels[name]; ok {
		return v
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s.suffix) {
			return s.tokens
		}
	}
	if strings.Contains(name, "-mini") {
		return 128_000
	}
	return defaultContext
}

// Headroom is the larger of 5% of the window or minHeadroom.
func Headroom(modelName string) int {
	h := int(math.Ceil(float64(ModelContextTokens(modelName)) * 0.05))
	if h < minHeadroom {
		return minHeadroom
	}
	return h
}

// InputChars returns how many characters of page text fit next to prompt
// when reserveOutput tokens are kept free for the reply. The result is
// clamped to [MinInputChars, MaxInputChars].
func InputChars(modelName, prompt string, reserveOutput int) int {
	if reserveOutput < 0 {
		reserveOutput = 0
	}
	remaining := ModelContextTokens(modelName) - Headroom(modelName) - reserveOutput - EstimateTokens(prompt)
	chars := remaining * charsPerToken
	if chars < MinInputChars {
		return MinInputChars
	}
	if chars > MaxInputChars {
		return MaxInputChars
	}
	return chars
}

var knownModels = map[string]int{
	"gpt-4o":             128_000,
	"gpt-4o-mini":        128_000,
	"gpt-4-turbo":        128_000,
	"gpt-3.5-turbo":      16_384,
	"llama-3":            8_192,
	"llama-3.1":          128_000,
	"openai/gpt-oss-20b": 4_096,
	"gpt-oss-20b":        4_096,
}

var suffixes = []struct {
	suffix string
	tokens int
}{
	{"1m", 1_000_000},
	{"200k", 200_000},
	{"128k", 128_000},
	{"32k", 32_768},
}
