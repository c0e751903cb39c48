package summary

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/bookmarkd/internal/fetch"
)

// fakeFetcher answers by URL and records every call.
type fakeFetcher struct {
	mu      sync.Mutex
	answers map[string]func() (fetch.Response, error)
	calls   []call
}

type call struct {
	url     string
	timeout time.Duration
}

func (f *fakeFetcher) FetchText(_ context.Context, url string, timeout time.Duration) (fetch.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{url: url, timeout: timeout})
	answer, ok := f.answers[url]
	f.mu.Unlock()
	if !ok {
		return fetch.Response{}, errors.New("no route to " + url)
	}
	return answer()
}

func ok(body string) func() (fetch.Response, error) {
	return func() (fetch.Response, error) {
		return fetch.Response{Status: 200, Body: []byte(body)}, nil
	}
}

func fail(err error) func() (fetch.Response, error) {
	return func() (fetch.Response, error) { return fetch.Response{}, err }
}

func newPipeline(f *fakeFetcher) *Pipeline {
	return &Pipeline{
		Primary:  &ReaderSource{Base: "https://reader.test/", Fetcher: f},
		Fallback: f,
		Logger:   zerolog.Nop(),
	}
}

var errTimeout = errors.New(`Get "https://reader.test/https://example.com": context deadline exceeded`)

func TestNormalizeURL(t *testing.T) {
	cases := map[string]string{
		"example.com":             "https://example.com",
		"www.example.com/a?b=c":   "https://www.example.com/a?b=c",
		"http://example.com":      "http://example.com",
		"https://example.com":     "https://example.com",
		"HTTPS://Example.com":     "HTTPS://Example.com",
		"Http://example.com/path": "Http://example.com/path",
		"ftp://example.com":       "https://ftp://example.com",
	}
	for in, want := range cases {
		if got := NormalizeURL(in); got != want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAcquire_NormalizesBeforeEitherCall(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errTimeout),
		"https://example.com":                     ok("<p>hi</p>"),
	}}
	newPipeline(f).Acquire(context.Background(), "example.com")

	if len(f.calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(f.calls))
	}
	if f.calls[0].url != "https://reader.test/https://example.com" {
		t.Fatalf("primary url = %q", f.calls[0].url)
	}
	if f.calls[1].url != "https://example.com" {
		t.Fatalf("fallback url = %q", f.calls[1].url)
	}
	if f.calls[0].timeout != 10*time.Second || f.calls[1].timeout != 12*time.Second {
		t.Fatalf("unexpected timeouts: %v, %v", f.calls[0].timeout, f.calls[1].timeout)
	}
}

func TestAcquire_PrimarySuccess(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": ok("Example summary text"),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")

	want := Result{Kind: KindPrimary, Text: "Example summary text", HTTPStatus: 200}
	if res != want {
		t.Fatalf("got %+v, want %+v", res, want)
	}
	if res.UsedFallback() || res.ErrorPtr() != nil || *res.StatusPtr() != 200 {
		t.Fatalf("unexpected provenance: %+v", res)
	}
	if len(f.calls) != 1 {
		t.Fatalf("fallback must not run after primary success")
	}
}

func TestAcquire_PrimaryEmptyBodyDoesNotFallBack(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": ok(""),
		"https://example.com":                     ok("<p>page</p>"),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")
	if res.Kind != KindPrimary || res.Text != "" || res.UsedFallback() {
		t.Fatalf("got %+v", res)
	}
	if len(f.calls) != 1 {
		t.Fatalf("expected only the primary call, got %d", len(f.calls))
	}
}

func TestAcquire_TimeoutThenFallback(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errTimeout),
		"https://example.com":                     ok(`<html><body><script>x</script><p>Hello&nbsp;World</p></body></html>`),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")

	if res.Text != "Hello World" || !res.UsedFallback() {
		t.Fatalf("got %+v", res)
	}
	if res.ErrorDetail != errTimeout.Error() {
		t.Fatalf("error detail = %q", res.ErrorDetail)
	}
	if res.StatusPtr() != nil {
		t.Fatalf("timeout must not record a status, got %d", res.HTTPStatus)
	}
}

func TestAcquire_PrimaryStatusFailureKeepsStatus(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(&fetch.StatusError{Status: 429}),
		"https://example.com":                     ok("<p>Body</p>"),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")
	if res.Kind != KindFallback || res.Text != "Body" {
		t.Fatalf("got %+v", res)
	}
	if res.HTTPStatus != 429 || res.ErrorDetail != "unexpected status: 429" {
		t.Fatalf("primary provenance overwritten: %+v", res)
	}
}

func TestAcquire_BothFail(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errors.New("dial tcp: connection refused")),
		"https://example.com":                     fail(errors.New("no such host")),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")
	if res.Text != Unavailable || res.UsedFallback() || !res.IsUnavailable() {
		t.Fatalf("got %+v", res)
	}
	if res.ErrorDetail != "dial tcp: connection refused" {
		t.Fatalf("expected primary failure message, got %q", res.ErrorDetail)
	}
}

func TestAcquire_FallbackEmptyText(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errTimeout),
		"https://example.com":                     ok("<html><head><style>p{}</style></head><body><script>1</script></body></html>"),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")
	if res.Text != Unavailable || res.UsedFallback() {
		t.Fatalf("got %+v", res)
	}
}

func TestAcquire_EmptyErrorMessageBecomesUnknown(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errors.New("")),
		"https://example.com":                     fail(errors.New("refused")),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")
	if res.ErrorDetail != "unknown error" {
		t.Fatalf("got %q", res.ErrorDetail)
	}
}

func TestAcquire_FallbackTruncates(t *testing.T) {
	long := strings.Repeat("é", 900)
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errTimeout),
		"https://example.com":                     ok("<p>" + long + "</p>"),
	}}
	res := newPipeline(f).Acquire(context.Background(), "https://example.com")
	if !res.UsedFallback() {
		t.Fatalf("expected fallback, got %+v", res)
	}
	if n := utf8.RuneCountInString(res.Text); n != 801 {
		t.Fatalf("expected 800 chars plus ellipsis, got %d", n)
	}
	if !strings.HasSuffix(res.Text, Ellipsis) {
		t.Fatalf("missing ellipsis")
	}
}

type denyAll struct{}

func (denyAll) Allowed(context.Context, string) (bool, error) { return false, nil }

func TestAcquire_RobotsGateBlocksFallback(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errTimeout),
		"https://example.com":                     ok("<p>Body</p>"),
	}}
	p := newPipeline(f)
	p.Robots = denyAll{}
	res := p.Acquire(context.Background(), "https://example.com")
	if !res.IsUnavailable() {
		t.Fatalf("got %+v", res)
	}
	if len(f.calls) != 1 {
		t.Fatalf("fallback fetch must not be issued, got %d calls", len(f.calls))
	}
}

func TestRefresh_DoesNotRememberPreviousFallback(t *testing.T) {
	fallbackUp := true
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://example.com": fail(errTimeout),
		"https://example.com": func() (fetch.Response, error) {
			if fallbackUp {
				return fetch.Response{Status: 200, Body: []byte("<p>Text</p>")}, nil
			}
			return fetch.Response{}, errors.New("down")
		},
	}}
	p := newPipeline(f)
	if res := p.Acquire(context.Background(), "example.com"); !res.UsedFallback() {
		t.Fatalf("first attempt: %+v", res)
	}
	fallbackUp = false
	res := p.Refresh(context.Background(), "example.com")
	if res.UsedFallback() || res.Text != Unavailable {
		t.Fatalf("refresh: %+v", res)
	}
}

func TestAcquire_UnconfiguredNeverPanics(t *testing.T) {
	res := (&Pipeline{Logger: zerolog.Nop()}).Acquire(context.Background(), "example.com")
	if !res.IsUnavailable() || res.ErrorDetail == "" {
		t.Fatalf("got %+v", res)
	}
}

// End to end over real HTTP: the reader stalls past its timeout and the page
// itself is served by a second server.
func TestAcquire_OverHTTP(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><style>b{}</style></head><body><h1>Title</h1><p>Fish &amp; chips</p></body></html>`))
	}))
	defer page.Close()
	reader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer reader.Close()

	client := &fetch.Client{}
	p := &Pipeline{
		Primary:  &ReaderSource{Base: reader.URL + "/", Fetcher: client, Timeout: 100 * time.Millisecond},
		Fallback: client,
		Logger:   zerolog.Nop(),
	}
	res := p.Acquire(context.Background(), page.URL)
	if res.Text != "Title Fish & chips" || !res.UsedFallback() {
		t.Fatalf("got %+v", res)
	}
	if !strings.Contains(res.ErrorDetail, "deadline exceeded") {
		t.Fatalf("expected timeout detail, got %q", res.ErrorDetail)
	}
}

func TestAcquire_PrimaryBodyKeptExactlyOverHTTP(t *testing.T) {
	body := strings.Repeat("a", 1100) + " café — naïve"
	reader := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(body))
	}))
	defer reader.Close()

	client := &fetch.Client{}
	p := &Pipeline{
		Primary:  &ReaderSource{Base: reader.URL + "/", Fetcher: client},
		Fallback: client,
		Logger:   zerolog.Nop(),
	}
	res := p.Acquire(context.Background(), "https://utf8.example")
	if res.Kind != KindPrimary {
		t.Fatalf("expected primary, got %+v", res)
	}
	if res.Text != body {
		t.Fatalf("primary body altered, tail=%q", res.Text[1090:])
	}
}

func TestAcquire_ConcurrentCallsAreIndependent(t *testing.T) {
	f := &fakeFetcher{answers: map[string]func() (fetch.Response, error){
		"https://reader.test/https://a.example": ok("A"),
		"https://reader.test/https://b.example": fail(errTimeout),
		"https://b.example":                     ok("<p>B</p>"),
	}}
	p := newPipeline(f)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if r := p.Acquire(context.Background(), "a.example"); r.Text != "A" || r.UsedFallback() {
				t.Errorf("a: %+v", r)
			}
		}()
		go func() {
			defer wg.Done()
			if r := p.Acquire(context.Background(), "b.example"); r.Text != "B" || !r.UsedFallback() {
				t.Errorf("b: %+v", r)
			}
		}()
	}
	wg.Wait()
}
