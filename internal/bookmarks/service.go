// Package bookmarks implements the bookmark operations behind the REST API:
// saving a URL with its title, favicon and summary, listing by tag,
// manual ordering, summary refresh and deletion.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hyperifyio/bookmarkd/internal/extract"
	"github.com/hyperifyio/bookmarkd/internal/langdetect"
	"github.com/hyperifyio/bookmarkd/internal/store"
	"github.com/hyperifyio/bookmarkd/internal/summary"
)

// DefaultTitleTimeout bounds the page fetch used to read <title>.
const DefaultTitleTimeout = 8 * time.Second

var (
	ErrURLRequired   = errors.New("URL required")
	ErrOrderNotArray = errors.New("order must be array of ids")
	ErrInvalidOrder  = errors.New("One or more ids invalid")
	ErrNotFound      = errors.New("Not found")
)

// Summarizer is satisfied by *summary.Pipeline.
type Summarizer interface {
	Acquire(ctx context.Context, targetURL string) summary.Result
	Refresh(ctx context.Context, storedURL string) summary.Result
}

// Service coordinates the store, the summary pipeline and page lookups.
type Service struct {
	Store     store.Store
	Summaries Summarizer
	// Pages fetches the bookmarked page for its title. Nil keeps the URL as
	// title.
	Pages        summary.Fetcher
	TitleTimeout time.Duration
	// Language labels summaries; nil disables detection.
	Language langdetect.Detector
	Logger   zerolog.Logger

	now   func() time.Time
	newID func() string
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) id() string {
	if s.newID != nil {
		return s.newID()
	}
	return uuid.NewString()
}

// FaviconURL returns the favicon service URL for pageURL.
func FaviconURL(pageURL string) string {
	return "https://www.google.com/s2/favicons?sz=64&domain_url=" + pageURL
}

// List returns the user's bookmarks that pass f, ordered by Order.
func (s *Service) List(ctx context.Context, userID string, f Filter) ([]store.Bookmark, error) {
	all, err := s.Store.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}
	out := make([]store.Bookmark, 0, len(all))
	for _, b := range all {
		if f.Match(b) {
			out = append(out, b)
		}
	}
	store.SortByOrder(out)
	return out, nil
}

// Get returns one of the user's bookmarks.
func (s *Service) Get(ctx context.Context, userID, id string) (store.Bookmark, error) {
	b, err := s.Store.LoadBookmark(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return store.Bookmark{}, ErrNotFound
	}
	if err != nil {
		return store.Bookmark{}, fmt.Errorf("load bookmark: %w", err)
	}
	return b, nil
}

// Add saves rawURL for the user, summarizing it and reading its title. The
// new bookmark goes last in the user's order.
func (s *Service) Add(ctx context.Context, userID, rawURL string, tags []string) (store.Bookmark, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return store.Bookmark{}, ErrURLRequired
	}
	logger := s.Logger.With().Str("user", userID).Str("url", rawURL).Logger()

	result := s.Summaries.Acquire(ctx, rawURL)
	title := s.lookupTitle(ctx, rawURL)

	count, err := s.Store.CountBookmarks(ctx, userID)
	if err != nil {
		return store.Bookmark{}, fmt.Errorf("count bookmarks: %w", err)
	}
	b := store.Bookmark{
		ID:        s.id(),
		UserID:    userID,
		URL:       rawURL,
		Title:     title,
		Favicon:   FaviconURL(rawURL),
		Tags:      normalizeTags(tags, false),
		Order:     count,
		CreatedAt: s.clock().UTC(),
	}
	s.apply(&b, result)
	if err := s.Store.SaveBookmark(ctx, b); err != nil {
		return store.Bookmark{}, fmt.Errorf("save bookmark: %w", err)
	}
	logger.Info().Str("id", b.ID).Str("source", b.SummarySource).Msg("bookmark added")
	return b, nil
}

// UpdateTags replaces the bookmark's tags.
func (s *Service) UpdateTags(ctx context.Context, userID, id string, tags []string) (store.Bookmark, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return store.Bookmark{}, err
	}
	b.Tags = normalizeTags(tags, false)
	if err := s.Store.SaveBookmark(ctx, b); err != nil {
		return store.Bookmark{}, fmt.Errorf("save bookmark: %w", err)
	}
	return b, nil
}

// Reorder assigns Order by position in ids. Every id must be one of the
// user's bookmarks; ids not listed keep their Order.
func (s *Service) Reorder(ctx context.Context, userID string, ids []string) error {
	owned, err := s.Store.ListBookmarks(ctx, userID)
	if err != nil {
		return fmt.Errorf("list bookmarks: %w", err)
	}
	set := make(map[string]struct{}, len(owned))
	for _, b := range owned {
		set[b.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return ErrInvalidOrder
		}
	}
	if err := s.Store.SetOrder(ctx, userID, ids); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrInvalidOrder
		}
		return fmt.Errorf("set order: %w", err)
	}
	return nil
}

// RefreshSummary re-acquires the summary and persists it whatever the
// outcome. Callers inspect the returned Result to report unavailability.
func (s *Service) RefreshSummary(ctx context.Context, userID, id string) (store.Bookmark, summary.Result, error) {
	b, err := s.Get(ctx, userID, id)
	if err != nil {
		return store.Bookmark{}, summary.Result{}, err
	}
	result := s.Summaries.Refresh(ctx, b.URL)
	s.apply(&b, result)
	if err := s.Store.SaveBookmark(ctx, b); err != nil {
		return store.Bookmark{}, summary.Result{}, fmt.Errorf("save bookmark: %w", err)
	}
	s.Logger.Info().Str("id", b.ID).Str("source", b.SummarySource).Msg("summary refreshed")
	return b, result, nil
}

// Delete removes one of the user's bookmarks.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	err := s.Store.DeleteBookmark(ctx, userID, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	return nil
}

// apply overwrites every summary field of b from r.
func (s *Service) apply(b *store.Bookmark, r summary.Result) {
	b.Summary = r.Text
	b.SummaryError = r.ErrorPtr()
	b.SummaryStatus = r.StatusPtr()
	b.FallbackUsed = r.UsedFallback()
	b.SummarySource = r.Kind.String()
	b.SummarizedAt = s.clock().UTC()
	b.SummaryLanguage = ""
	if s.Language != nil && !r.IsUnavailable() {
		b.SummaryLanguage = s.Language.Detect(r.Text)
	}
}

// lookupTitle returns the page title, or pageURL on any failure.
func (s *Service) lookupTitle(ctx context.Context, pageURL string) string {
	if s.Pages == nil {
		return pageURL
	}
	if u, err := url.Parse(pageURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return pageURL
	}
	timeout := s.TitleTimeout
	if timeout <= 0 {
		timeout = DefaultTitleTimeout
	}
	resp, err := s.Pages.FetchText(ctx, pageURL, timeout)
	if err != nil {
		s.Logger.Debug().Err(err).Str("url", pageURL).Msg("title lookup failed")
		return pageURL
	}
	if title := extract.Title(resp.Body); title != "" {
		return title
	}
	return pageURL
}
