package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hyperifyio/bookmarkd/internal/llm"
	openai "github.com/sashabaranov/go-openai"
)

func TestReaderPath(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{Model: "m"}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/https://example.com/a?b=c")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != 200 || !strings.Contains(string(body), "https://example.com/a?b=c") {
		t.Fatalf("got %d %q", resp.StatusCode, body)
	}
}

func TestReaderFailStatus(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{FailStatus: 429}))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/https://example.com")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 429 {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestChatCompletionsWorkWithClient(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{Model: "stub"}))
	defer srv.Close()
	client := llm.NewOpenAI(srv.URL+"/v1", "", nil)
	resp, err := client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model: "stub",
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Title: Go Blog\nURL: https://go.dev/blog"},
		},
	})
	if err != nil {
		t.Fatalf("chat: %v", err)
	}
	if len(resp.Choices) != 1 || !strings.Contains(resp.Choices[0].Message.Content, "Go Blog") {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestChatFailStatusCarriesHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(newHandler(options{FailStatus: 503}))
	defer srv.Close()
	client := llm.NewOpenAI(srv.URL+"/v1", "", nil)
	_, err := client.CreateChatCompletion(context.Background(), openai.ChatCompletionRequest{
		Model:    "stub",
		Messages: []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: "x"}},
	})
	if llm.StatusOf(err) != 503 {
		t.Fatalf("status = %d (%v)", llm.StatusOf(err), err)
	}
}
