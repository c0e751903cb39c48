package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/bookmarkd/internal/budget"
	"github.com/hyperifyio/bookmarkd/internal/cache"
	"github.com/hyperifyio/bookmarkd/internal/extract"
	"github.com/hyperifyio/bookmarkd/internal/fetch"
	"github.com/hyperifyio/bookmarkd/internal/llm"
)

const chatSystemPrompt = "You summarise web pages for a personal bookmark list. " +
	"Reply with three to five plain sentences describing what the page is about. " +
	"No markdown, no preamble, no links."

// chatReplyTokens is kept free in the context window for the completion.
const chatReplyTokens = 512

// ChatSource summarises a page with an OpenAI-compatible chat model. The page
// is fetched and reduced to readable text first; completions are cached by
// model and prompt.
type ChatSource struct {
	Client    llm.Client
	Model     string
	Pages     Fetcher
	Extractor extract.Extractor
	Cache     *cache.LLMCache
	// Timeout bounds the page fetch and the completion together.
	Timeout time.Duration
	// MaxInputChars caps the page text sent to the model. Zero sizes it from
	// the model's context window.
	MaxInputChars int
}

func (s *ChatSource) Summarize(ctx context.Context, normalizedURL string) (fetch.Response, error) {
	if s.Client == nil || strings.TrimSpace(s.Model) == "" {
		return fetch.Response{}, errors.New("chat summarizer not configured")
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultPrimaryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	page, err := s.Pages.FetchText(ctx, normalizedURL, 0)
	if err != nil {
		return page, fmt.Errorf("fetch page: %w", err)
	}
	ex := s.Extractor
	if ex == nil {
		ex = extract.ReadabilityExtractor{}
	}
	doc := ex.Extract(normalizedURL, page.Body)
	if strings.TrimSpace(doc.Text) == "" {
		return fetch.Response{URL: normalizedURL, Status: page.Status}, errors.New("page has no readable text")
	}
	maxChars := s.MaxInputChars
	if maxChars <= 0 {
		maxChars = budget.InputChars(s.Model, chatSystemPrompt, chatReplyTokens)
	}
	user := fmt.Sprintf("Title: %s\nURL: %s\n\n%s", doc.Title, normalizedURL, Truncate(doc.Text, maxChars))

	key := cache.KeyFrom(s.Model, chatSystemPrompt+"\n\n"+user)
	if s.Cache != nil {
		if raw, ok, _ := s.Cache.Get(ctx, key); ok {
			var out struct {
				Summary string `json:"summary"`
			}
			if err := json.Unmarshal(raw, &out); err == nil && strings.TrimSpace(out.Summary) != "" {
				return textResponse(normalizedURL, out.Summary), nil
			}
		}
	}

	resp, err := s.Client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: chatSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	})
	if err != nil {
		return fetch.Response{URL: normalizedURL, Status: llm.StatusOf(err)}, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fetch.Response{URL: normalizedURL}, errors.New("chat completion returned no choices")
	}
	out := strings.TrimSpace(resp.Choices[0].Message.Content)
	if s.Cache != nil && out != "" {
		if b, err := json.Marshal(map[string]string{"summary": out}); err == nil {
			_ = s.Cache.Save(ctx, key, b)
		}
	}
	return textResponse(normalizedURL, out), nil
}

func textResponse(url, text string) fetch.Response {
	return fetch.Response{URL: url, Status: http.StatusOK, ContentType: "text/plain; charset=utf-8", Body: []byte(text)}
}
