// Package robots answers whether a page may be scraped according to the
// host's robots.txt. Parsed rules are kept in memory per host.
package robots

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/hyperifyio/bookmarkd/internal/fetch"
)

// Getter fetches robots.txt. *fetch.Client satisfies it.
type Getter interface {
	FetchText(ctx context.Context, url string, timeout time.Duration) (fetch.Response, error)
}

// Checker evaluates robots.txt rules for one user agent.
type Checker struct {
	Getter    Getter
	UserAgent string
	// Timeout bounds the robots.txt request. Zero means 5s.
	Timeout time.Duration
	// EntryExpiry is how long a host's rules are reused. Zero means 30m.
	EntryExpiry time.Duration

	mu  sync.Mutex
	mem map[string]memEntry
	now func() time.Time
}

type memEntry struct {
	data   *robotstxt.RobotsData
	expiry time.Time
}

// Allowed reports whether pageURL may be fetched. When robots.txt cannot be
// retrieved at all the page is allowed and the transport error is returned
// for logging.
func (c *Checker) Allowed(ctx context.Context, pageURL string) (bool, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return false, fmt.Errorf("unsupported url scheme: %q", pageURL)
	}
	origin := scheme + "://" + u.Host

	data, err := c.rulesFor(ctx, origin)
	if err != nil {
		return true, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	agent := c.UserAgent
	if agent == "" {
		agent = "*"
	}
	return data.TestAgent(path, agent), nil
}

func (c *Checker) rulesFor(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	c.mu.Lock()
	if c.now == nil {
		c.now = time.Now
	}
	if c.mem == nil {
		c.mem = make(map[string]memEntry)
	}
	if ent, ok := c.mem[origin]; ok && c.now().Before(ent.expiry) {
		c.mu.Unlock()
		return ent.data, nil
	}
	c.mu.Unlock()

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	resp, err := c.Getter.FetchText(ctx, origin+"/robots.txt", timeout)
	status, body := resp.Status, resp.Body
	if err != nil {
		status = fetch.StatusOf(err)
		if status == 0 {
			return nil, err
		}
		body = nil
	}
	// 4xx allows everything and 5xx disallows everything, per the library.
	data, perr := robotstxt.FromStatusAndBytes(status, body)
	if perr != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", perr)
	}

	exp := c.EntryExpiry
	if exp <= 0 {
		exp = 30 * time.Minute
	}
	c.mu.Lock()
	c.mem[origin] = memEntry{data: data, expiry: c.now().Add(exp)}
	c.mu.Unlock()
	return data, nil
}
