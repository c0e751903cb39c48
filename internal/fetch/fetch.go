package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html/charset"

	"github.com/hyperifyio/bookmarkd/internal/cache"
)

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 4 << 20

// Response is the text-bearing result of a GET.
type Response struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Text returns the body as a string.
func (r Response) Text() string { return string(r.Body) }

// StatusError is returned for any non-2xx response. The body is kept so that
// callers can decide for themselves whether an error page is useful.
type StatusError struct {
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d", e.Status)
}

// StatusOf returns the HTTP status carried by err, or 0 when the request never
// produced a response.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return 0
}

// Client wraps http.Client and provides per-call timeouts, a redirect cap,
// an optional concurrency gate and an optional on-disk cache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Zero or one disables retry.
	MaxAttempts int
	// PerRequestTimeout bounds Get. FetchText takes its own timeout.
	PerRequestTimeout time.Duration
	// MaxBodyBytes caps the body read. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Cache, when set, stores 200 responses and revalidates them with
	// If-None-Match / If-Modified-Since.
	Cache *cache.HTTPCache

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests per client. Zero means unlimited.
	MaxConcurrent int

	limiter     chan struct{}
	limiterOnce sync.Once
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

// Get fetches rawURL bounded by PerRequestTimeout.
func (c *Client) Get(ctx context.Context, rawURL string) (Response, error) {
	return c.FetchText(ctx, rawURL, c.PerRequestTimeout)
}

// FetchText issues a GET bounded by timeout (zero means only ctx bounds it).
// A timeout is reported like any other transport error.
func (c *Client) FetchText(ctx context.Context, rawURL string, timeout time.Duration) (Response, error) {
	var etag, lastMod string
	if c.Cache != nil {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, newEtag, newLastMod, err := c.tryOnce(ctx, rawURL, timeout, etag, lastMod)
		if err == nil {
			if resp.Status == http.StatusNotModified && c.Cache != nil {
				if cached, err := c.Cache.LoadBody(ctx, rawURL); err == nil {
					resp.Status = http.StatusOK
					resp.Body = cached
					return resp, nil
				}
			}
			if c.Cache != nil && resp.Status == http.StatusOK {
				_ = c.Cache.Save(ctx, rawURL, resp.ContentType, newEtag, newLastMod, resp.Body)
			}
			return resp, nil
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 || ctx.Err() != nil {
			break
		}
		time.Sleep(time.Duration(i+1) * 200 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return Response{URL: rawURL, Status: StatusOf(lastErr)}, lastErr
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, timeout time.Duration, etag, lastMod string) (Response, string, string, error) {
	c.acquire()
	defer c.release()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Response{}, "", "", fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return Response{}, "", "", fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return Response{}, "", "", err
	}
	defer resp.Body.Close()

	out := Response{URL: rawURL, Status: resp.StatusCode, ContentType: resp.Header.Get("Content-Type")}
	if resp.StatusCode == http.StatusNotModified {
		return out, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
	}
	body, err := c.readBody(resp.Body, out.ContentType)
	if err != nil {
		return out, "", "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, "", "", &StatusError{Status: resp.StatusCode, Body: body}
	}
	out.Body = body
	return out, resp.Header.Get("ETag"), resp.Header.Get("Last-Modified"), nil
}

func (c *Client) readBody(r io.Reader, contentType string) ([]byte, error) {
	limit := c.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	raw, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return nil, err
	}
	if !isText(contentType) {
		return raw, nil
	}
	// Valid UTF-8 is returned byte for byte; only legacy encodings are
	// converted.
	if utf8.Valid(raw) {
		return raw, nil
	}
	enc, name, _ := charset.DetermineEncoding(raw, contentType)
	if enc == nil || name == "utf-8" {
		return raw, nil
	}
	utf8Body, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return raw, nil
	}
	return utf8Body, nil
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	status := StatusOf(err)
	return status >= 500 && status <= 599
}

func isText(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return ct == "" || strings.HasPrefix(ct, "text/") || strings.HasPrefix(ct, "application/xhtml+xml")
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
