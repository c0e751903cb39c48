package summary

import (
	"context"
	"time"

	"github.com/hyperifyio/bookmarkd/internal/fetch"
)

const (
	// DefaultReaderBase is the public reader service; the target URL is
	// appended verbatim.
	DefaultReaderBase = "https://r.jina.ai/"
	// DefaultPrimaryTimeout bounds the primary summarizer call.
	DefaultPrimaryTimeout = 10 * time.Second
)

// Fetcher is the single network capability the pipeline depends on.
// *fetch.Client satisfies it. Non-2xx responses must be returned as errors.
type Fetcher interface {
	FetchText(ctx context.Context, url string, timeout time.Duration) (fetch.Response, error)
}

// Source is a primary summarizer. Any error sends the pipeline to the
// fallback extractor.
type Source interface {
	Summarize(ctx context.Context, normalizedURL string) (fetch.Response, error)
}

// ReaderSource asks a reader service for a text rendition of the page by
// requesting <Base><normalizedURL>.
type ReaderSource struct {
	Base    string
	Fetcher Fetcher
	Timeout time.Duration
}

func (s *ReaderSource) Summarize(ctx context.Context, normalizedURL string) (fetch.Response, error) {
	base := s.Base
	if base == "" {
		base = DefaultReaderBase
	}
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultPrimaryTimeout
	}
	return s.Fetcher.FetchText(ctx, base+normalizedURL, timeout)
}
