package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/hyperifyio/bookmarkd/internal/auth"
	"github.com/hyperifyio/bookmarkd/internal/bookmarks"
	"github.com/hyperifyio/bookmarkd/internal/fetch"
	"github.com/hyperifyio/bookmarkd/internal/store"
	"github.com/hyperifyio/bookmarkd/internal/summary"
)

// upstream plays both the reader service (under /reader/) and the saved
// pages. readerDown makes the reader answer 503.
type upstream struct {
	srv        *httptest.Server
	readerDown atomic.Bool
	pageDown   atomic.Bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/reader/"):
			if u.readerDown.Load() {
				http.Error(w, "busy", http.StatusServiceUnavailable)
				return
			}
			_, _ = io.WriteString(w, "Reader summary of "+strings.TrimPrefix(r.URL.Path, "/reader/"))
		case r.URL.Path == "/robots.txt":
			http.NotFound(w, r)
		default:
			if u.pageDown.Load() {
				http.Error(w, "gone", http.StatusGone)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			_, _ = io.WriteString(w, "<html><head><title>Saved Page</title><script>x()</script></head><body><p>Body &amp; text</p></body></html>")
		}
	}))
	t.Cleanup(u.srv.Close)
	return u
}

type harness struct {
	t       *testing.T
	handler http.Handler
	up      *upstream
	token   string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	up := newUpstream(t)
	st, err := store.OpenJSON(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatal(err)
	}
	authSvc, err := auth.NewService(st, "test-secret", 0)
	if err != nil {
		t.Fatal(err)
	}
	authSvc.Cost = bcrypt.MinCost
	client := &fetch.Client{}
	pipeline := &summary.Pipeline{
		Primary:  &summary.ReaderSource{Base: up.srv.URL + "/reader/", Fetcher: client},
		Fallback: client,
		Logger:   zerolog.Nop(),
	}
	srv := &Server{
		Auth: authSvc,
		Bookmarks: &bookmarks.Service{
			Store:     st,
			Summaries: pipeline,
			Pages:     client,
			Logger:    zerolog.Nop(),
		},
		Logger:    zerolog.Nop(),
		ClientURL: "https://bookmarks.example",
	}
	return &harness{t: t, handler: srv.Handler(), up: up}
}

func (h *harness) do(method, path string, body any) (int, map[string]any, []byte) {
	h.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			h.t.Fatal(err)
		}
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	var obj map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &obj)
	return rec.Code, obj, rec.Body.Bytes()
}

func (h *harness) login() {
	h.t.Helper()
	creds := map[string]string{"email": "a@example.com", "password": "pw"}
	if code, body, _ := h.do(http.MethodPost, "/api/auth/register", creds); code != http.StatusCreated || body["message"] != "User registered successfully" {
		h.t.Fatalf("register: %d %v", code, body)
	}
	code, body, _ := h.do(http.MethodPost, "/api/auth/login", creds)
	if code != http.StatusOK {
		h.t.Fatalf("login: %d %v", code, body)
	}
	h.token, _ = body["token"].(string)
}

func TestHealth(t *testing.T) {
	h := newHarness(t)
	code, body, _ := h.do(http.MethodGet, "/health", nil)
	if code != http.StatusOK || body["ok"] != true {
		t.Fatalf("health: %d %v", code, body)
	}
}

func TestAuthErrors(t *testing.T) {
	h := newHarness(t)
	cases := []struct {
		path string
		body any
		code int
		msg  string
	}{
		{"/api/auth/register", map[string]string{"email": "a@example.com"}, 400, "Email & password required"},
		{"/api/auth/register", "{not json", 400, "Invalid JSON body"},
		{"/api/auth/login", map[string]string{"email": "x@example.com", "password": "pw"}, 400, "Invalid credentials"},
	}
	for _, tc := range cases {
		code, body, _ := h.do(http.MethodPost, tc.path, tc.body)
		if code != tc.code || body["message"] != tc.msg {
			t.Fatalf("%s: %d %v", tc.path, code, body)
		}
	}
	h.login()
	code, body, _ := h.do(http.MethodPost, "/api/auth/register", map[string]string{"email": "a@example.com", "password": "pw"})
	if code != 400 || body["message"] != "Email already registered" {
		t.Fatalf("duplicate register: %d %v", code, body)
	}

	h.token = ""
	code, body, _ = h.do(http.MethodGet, "/api/bookmarks", nil)
	if code != 401 || body["message"] != "No token, authorization denied" {
		t.Fatalf("no token: %d %v", code, body)
	}
	h.token = "garbage"
	code, body, _ = h.do(http.MethodGet, "/api/bookmarks", nil)
	if code != 401 || body["message"] != "Token is not valid" {
		t.Fatalf("bad token: %d %v", code, body)
	}
}

func TestBookmarkFlow(t *testing.T) {
	h := newHarness(t)
	h.login()
	page := h.up.srv.URL + "/article"

	code, body, _ := h.do(http.MethodPost, "/api/bookmarks", map[string]any{"url": ""})
	if code != 400 || body["message"] != "URL required" {
		t.Fatalf("empty url: %d %v", code, body)
	}

	code, first, _ := h.do(http.MethodPost, "/api/bookmarks", map[string]any{"url": page, "tags": []string{"go"}})
	if code != http.StatusCreated {
		t.Fatalf("add: %d %v", code, first)
	}
	if first["title"] != "Saved Page" || first["summary"] != "Reader summary of "+page || first["fallbackUsed"] != false {
		t.Fatalf("unexpected record: %v", first)
	}
	if first["summaryError"] != nil || first["summaryStatus"] != float64(200) {
		t.Fatalf("primary success should record status 200 and no error: %v", first)
	}

	h.up.readerDown.Store(true)
	code, second, _ := h.do(http.MethodPost, "/api/bookmarks", map[string]any{"url": page + "2", "tags": "not-an-array"})
	if code != http.StatusCreated {
		t.Fatalf("add with fallback: %d %v", code, second)
	}
	if second["fallbackUsed"] != true || second["summary"] != "Saved Page Body & text" || second["summaryStatus"] != float64(503) {
		t.Fatalf("fallback record: %v", second)
	}
	if tags, _ := second["tags"].([]any); len(tags) != 0 {
		t.Fatalf("non-array tags should become empty, got %v", second["tags"])
	}

	code, _, raw := h.do(http.MethodGet, "/api/bookmarks?tag=GO", nil)
	var list []map[string]any
	if err := json.Unmarshal(raw, &list); err != nil || code != 200 || len(list) != 1 || list[0]["id"] != first["id"] {
		t.Fatalf("filtered list: %d %s", code, raw)
	}

	firstID, secondID := first["id"].(string), second["id"].(string)
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/reorder", map[string]any{"order": "x"})
	if code != 400 || body["message"] != "order must be array of ids" {
		t.Fatalf("reorder non-array: %d %v", code, body)
	}
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/reorder", map[string]any{"order": []int{1, 2}})
	if code != 400 || body["message"] != "One or more ids invalid" {
		t.Fatalf("reorder numeric ids: %d %v", code, body)
	}
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/reorder", map[string]any{"order": []string{secondID, "bogus"}})
	if code != 400 || body["message"] != "One or more ids invalid" {
		t.Fatalf("reorder bogus: %d %v", code, body)
	}
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/reorder", map[string]any{"order": []string{secondID, firstID}})
	if code != 200 || body["message"] != "Reordered" {
		t.Fatalf("reorder: %d %v", code, body)
	}
	_, _, raw = h.do(http.MethodGet, "/api/bookmarks", nil)
	list = nil
	if err := json.Unmarshal(raw, &list); err != nil || len(list) != 2 || list[0]["id"] != secondID {
		t.Fatalf("order after reorder: %s", raw)
	}

	code, body, _ = h.do(http.MethodPatch, "/api/bookmarks/"+firstID+"/tags", map[string]any{"tags": []string{"news"}})
	if code != 200 {
		t.Fatalf("update tags: %d %v", code, body)
	}

	code, _, raw = h.do(http.MethodGet, "/api/bookmarks/export?format=md", nil)
	if code != 200 || !strings.Contains(string(raw), "## Saved Page") {
		t.Fatalf("export: %d %s", code, raw)
	}

	code, body, _ = h.do(http.MethodDelete, "/api/bookmarks/"+firstID, nil)
	if code != 200 || body["message"] != "Deleted successfully" {
		t.Fatalf("delete: %d %v", code, body)
	}
	code, body, _ = h.do(http.MethodDelete, "/api/bookmarks/"+firstID, nil)
	if code != 404 || body["message"] != "Not found" {
		t.Fatalf("second delete: %d %v", code, body)
	}
}

func TestRefreshSummary(t *testing.T) {
	h := newHarness(t)
	h.login()
	code, created, _ := h.do(http.MethodPost, "/api/bookmarks", map[string]any{"url": h.up.srv.URL + "/article"})
	if code != http.StatusCreated {
		t.Fatalf("add: %d", code)
	}
	id := created["id"].(string)

	code, body, _ := h.do(http.MethodPost, "/api/bookmarks/missing/refresh-summary", nil)
	if code != 404 || body["message"] != "Not found" {
		t.Fatalf("missing: %d %v", code, body)
	}

	h.up.readerDown.Store(true)
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/"+id+"/refresh-summary", nil)
	if code != 200 || body["fallbackUsed"] != true || body["note"] != "Fallback extraction used" {
		t.Fatalf("fallback refresh: %d %v", code, body)
	}

	h.up.pageDown.Store(true)
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/"+id+"/refresh-summary", nil)
	if code != http.StatusBadGateway || body["message"] != "Failed to refresh summary" || body["status"] != float64(503) {
		t.Fatalf("unavailable refresh: %d %v", code, body)
	}
	if msg, _ := body["error"].(string); !strings.Contains(msg, "503") {
		t.Fatalf("error detail should name the primary failure: %v", body["error"])
	}

	_, stored, _ := h.do(http.MethodGet, "/api/bookmarks/"+id, nil)
	if stored["summary"] != summary.Unavailable || stored["fallbackUsed"] != false {
		t.Fatalf("unavailable result not persisted: %v", stored)
	}

	h.up.readerDown.Store(false)
	code, body, _ = h.do(http.MethodPost, "/api/bookmarks/"+id+"/refresh-summary", nil)
	if code != 200 || body["fallbackUsed"] != false || body["note"] != nil {
		t.Fatalf("primary refresh: %d %v", code, body)
	}
}

func TestCORS(t *testing.T) {
	h := newHarness(t)
	for origin, allowed := range map[string]bool{
		DevClientOrigin:             true,
		"https://bookmarks.example": true,
		"https://evil.example":      false,
	} {
		req := httptest.NewRequest(http.MethodOptions, "/api/bookmarks", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		h.handler.ServeHTTP(rec, req)
		got := rec.Header().Get("Access-Control-Allow-Origin") == origin
		if got != allowed {
			t.Fatalf("origin %s: allowed=%v headers=%v", origin, got, rec.Header())
		}
		if allowed && rec.Header().Get("Access-Control-Allow-Credentials") != "true" {
			t.Fatalf("credentials not allowed for %s", origin)
		}
	}
}
