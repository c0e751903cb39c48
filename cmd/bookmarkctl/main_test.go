package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hyperifyio/bookmarkd/internal/summary"
)

// execute runs the root command with args against a throwaway store and
// cache, returning stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	base := []string{
		"--config=",
		"--store.driver", "json",
		"--store.path", filepath.Join(dir, "db.json"),
		"--cache.dir", filepath.Join(dir, "cache"),
	}
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append(args, base...))
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSummarizeJSON_Primary(t *testing.T) {
	var requested string
	reader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = r.URL.Path
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Reader summary of the page"))
	}))
	defer reader.Close()

	stdout, err := execute(t, "summarize", "example.com", "--json", "--summarizer.base", reader.URL+"/")
	if err != nil {
		t.Fatalf("summarize: %v\n%s", err, stdout)
	}
	if requested != "/https://example.com" {
		t.Fatalf("reader asked for %q", requested)
	}
	var got summarizeOutput
	if err := json.Unmarshal([]byte(stdout), &got); err != nil {
		t.Fatalf("decode %q: %v", stdout, err)
	}
	if got.URL != "https://example.com" || got.Source != "primary" || got.Summary != "Reader summary of the page" {
		t.Fatalf("unexpected output: %+v", got)
	}
	if got.FallbackUsed || got.Error != nil || got.Status == nil || *got.Status != http.StatusOK {
		t.Fatalf("unexpected primary metadata: %+v", got)
	}
}

func TestSummarize_UnavailableFails(t *testing.T) {
	reader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer reader.Close()
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer page.Close()

	stdout, err := execute(t, "summarize", page.URL, "--json=false", "--summarizer.base", reader.URL+"/")
	if err == nil {
		t.Fatalf("expected error for unavailable summary, got %q", stdout)
	}
	if !strings.Contains(err.Error(), "summary unavailable") || !strings.Contains(stdout, summary.Unavailable) {
		t.Fatalf("unexpected output %q / %v", stdout, err)
	}
}

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(out.String(), "bookmarkctl ") {
		t.Fatalf("got %q", out.String())
	}
}
