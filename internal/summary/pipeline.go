// Package summary turns a bookmarked URL into a short readable summary.
//
// One primary summarizer call is made. Only if it fails is the page fetched
// directly and reduced to plain text. The outcome is always a Result value:
// failures are recorded in its fields and never returned as errors.
package summary

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/hyperifyio/bookmarkd/internal/fetch"
	"github.com/hyperifyio/bookmarkd/internal/llm"
)

const (
	// DefaultFallbackTimeout bounds the direct page fetch. Raw pages can be
	// heavier than reader output, hence longer than the primary timeout.
	DefaultFallbackTimeout = 12 * time.Second
	// DefaultMaxChars caps fallback text before the ellipsis.
	DefaultMaxChars = 800
)

var errRobotsDisallowed = errors.New("fallback fetch disallowed by robots.txt")

// RobotsChecker optionally gates the fallback fetch.
type RobotsChecker interface {
	Allowed(ctx context.Context, pageURL string) (bool, error)
}

// Pipeline acquires summaries. It holds no per-call state, so one value may
// serve concurrent callers.
type Pipeline struct {
	Primary         Source
	Fallback        Fetcher
	FallbackTimeout time.Duration
	MaxChars        int
	Robots          RobotsChecker
	Logger          zerolog.Logger
}

// Acquire produces a summary for targetURL, which must be non-empty.
func (p *Pipeline) Acquire(ctx context.Context, targetURL string) Result {
	normalized := NormalizeURL(targetURL)
	logger := p.Logger.With().Str("url", normalized).Logger()

	var (
		resp fetch.Response
		err  error
	)
	if p.Primary == nil {
		err = errors.New("primary summarizer not configured")
	} else {
		resp, err = p.Primary.Summarize(ctx, normalized)
	}
	if err == nil {
		logger.Debug().Int("status", resp.Status).Int("bytes", len(resp.Body)).Msg("primary summary acquired")
		return Result{Kind: KindPrimary, Text: resp.Text(), HTTPStatus: resp.Status}
	}

	res := Result{
		Kind:        KindUnavailable,
		Text:        Unavailable,
		HTTPStatus:  statusOf(err),
		ErrorDetail: messageOf(err),
	}
	logger.Warn().Err(err).Int("status", res.HTTPStatus).Msg("primary summarizer failed; trying fallback")

	text, ferr := p.fallback(ctx, normalized)
	if ferr != nil {
		if res.ErrorDetail == "" {
			res.ErrorDetail = messageOf(ferr)
		}
		logger.Warn().Err(ferr).Msg("fallback extraction failed")
		return res
	}
	if text == "" {
		logger.Warn().Msg("fallback extraction found no text")
		return res
	}
	res.Kind = KindFallback
	res.Text = text
	logger.Info().Int("chars", len([]rune(text))).Msg("fallback summary used")
	return res
}

// Refresh re-runs acquisition for an already stored URL. Nothing from the
// previous result carries over.
func (p *Pipeline) Refresh(ctx context.Context, storedURL string) Result {
	return p.Acquire(ctx, storedURL)
}

func (p *Pipeline) fallback(ctx context.Context, normalized string) (string, error) {
	if p.Fallback == nil {
		return "", errors.New("fallback fetcher not configured")
	}
	if p.Robots != nil {
		ok, err := p.Robots.Allowed(ctx, normalized)
		if err != nil {
			p.Logger.Debug().Err(err).Str("url", normalized).Msg("robots.txt check inconclusive")
		}
		if !ok {
			return "", errRobotsDisallowed
		}
	}
	timeout := p.FallbackTimeout
	if timeout <= 0 {
		timeout = DefaultFallbackTimeout
	}
	page, err := p.Fallback.FetchText(ctx, normalized, timeout)
	if err != nil {
		return "", err
	}
	max := p.MaxChars
	if max == 0 {
		max = DefaultMaxChars
	}
	text := StripHTML(page.Text())
	if text == "" {
		return "", nil
	}
	return Truncate(text, max), nil
}

func statusOf(err error) int {
	if s := fetch.StatusOf(err); s != 0 {
		return s
	}
	return llm.StatusOf(err)
}

func messageOf(err error) string {
	if err == nil || err.Error() == "" {
		return "unknown error"
	}
	return err.Error()
}
