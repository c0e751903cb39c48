// Command summarizer-stub is a local stand-in for the reader service and an
// OpenAI-compatible chat endpoint, for development and end-to-end tests.
//
// GET /<url> answers with a canned plain-text summary of <url>, like a reader
// service. FAIL_STATUS makes that path answer with the given status instead,
// and DELAY slows every answer down, which exercises the fallback path.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type options struct {
	Model      string
	FailStatus int
	Delay      time.Duration
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	opts := options{Model: os.Getenv("MODEL_ID")}
	if strings.TrimSpace(opts.Model) == "" {
		opts.Model = "test-model"
	}
	if n, err := strconv.Atoi(os.Getenv("FAIL_STATUS")); err == nil {
		opts.FailStatus = n
	}
	if d, err := time.ParseDuration(os.Getenv("DELAY")); err == nil {
		opts.Delay = d
	}
	addr := os.Getenv("ADDR")
	if strings.TrimSpace(addr) == "" {
		addr = ":8081"
	}

	log.Info().Str("addr", addr).Str("model", opts.Model).Int("failStatus", opts.FailStatus).Msg("summarizer-stub listening")
	if err := http.ListenAndServe(addr, newHandler(opts)); err != nil {
		log.Fatal().Err(err).Msg("listen failed")
	}
}

// newHandler dispatches on the raw path; a ServeMux would clean the embedded
// "//" of reader URLs and redirect.
func newHandler(opts options) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if opts.Delay > 0 {
			select {
			case <-time.After(opts.Delay):
			case <-r.Context().Done():
				return
			}
		}
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusNoContent)
		case "/v1/models":
			writeJSON(w, map[string]any{
				"data": []map[string]any{{"id": opts.Model, "object": "model"}},
			})
		case "/v1/chat/completions":
			chat(w, r, opts)
		default:
			reader(w, r, opts)
		}
	})
}

func reader(w http.ResponseWriter, r *http.Request, opts options) {
	target := strings.TrimPrefix(r.URL.Path, "/")
	if r.URL.RawQuery != "" {
		target += "?" + r.URL.RawQuery
	}
	if target == "" {
		http.Error(w, "missing target url", http.StatusBadRequest)
		return
	}
	if opts.FailStatus >= 400 {
		http.Error(w, http.StatusText(opts.FailStatus), opts.FailStatus)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "Title: %s\n\nA stub summary of %s.", target, target)
}

func chat(w http.ResponseWriter, r *http.Request, opts options) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	defer r.Body.Close()
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if opts.FailStatus >= 400 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(opts.FailStatus)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"message": "stub failure", "type": "server_error"},
		})
		return
	}
	title := "the page"
	for _, m := range req.Messages {
		if m.Role != "user" {
			continue
		}
		for _, line := range strings.Split(m.Content, "\n") {
			if t, ok := strings.CutPrefix(line, "Title: "); ok && strings.TrimSpace(t) != "" {
				title = strings.TrimSpace(t)
			}
		}
	}
	writeJSON(w, map[string]any{
		"id":     "stub-1",
		"object": "chat.completion",
		"model":  opts.Model,
		"choices": []map[string]any{
			{"index": 0, "finish_reason": "stop", "message": map[string]string{
				"role":    "assistant",
				"content": "This page, " + title + ", is summarised by the stub model.",
			}},
		},
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
