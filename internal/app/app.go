// Package app wires configuration, storage, the summary pipeline and the HTTP
// API into a runnable service.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/bookmarkd/internal/api"
	"github.com/hyperifyio/bookmarkd/internal/auth"
	"github.com/hyperifyio/bookmarkd/internal/bookmarks"
	"github.com/hyperifyio/bookmarkd/internal/cache"
	"github.com/hyperifyio/bookmarkd/internal/extract"
	"github.com/hyperifyio/bookmarkd/internal/fetch"
	"github.com/hyperifyio/bookmarkd/internal/langdetect"
	"github.com/hyperifyio/bookmarkd/internal/llm"
	"github.com/hyperifyio/bookmarkd/internal/robots"
	"github.com/hyperifyio/bookmarkd/internal/store"
	"github.com/hyperifyio/bookmarkd/internal/summary"
)

// shutdownGrace bounds graceful shutdown of in-flight requests.
const shutdownGrace = 15 * time.Second

// App owns the long-lived components built from Config.
type App struct {
	cfg       Config
	store     store.Store
	fetcher   *fetch.Client
	pipeline  *summary.Pipeline
	bookmarks *bookmarks.Service
	auth      *auth.Service
	httpCache *cache.HTTPCache
	llmCache  *cache.LLMCache
}

// New builds the application. The auth service is only created when a JWT
// secret is configured, which the server requires and the CLI does not.
func New(ctx context.Context, cfg Config) (*App, error) {
	a := &App{cfg: cfg}

	if cfg.CacheDir != "" {
		if err := prepareCaches(cfg); err != nil {
			log.Warn().Err(err).Str("dir", cfg.CacheDir).Msg("cache preparation failed; continuing")
		}
		a.httpCache = &cache.HTTPCache{Dir: filepath.Join(cfg.CacheDir, "http"), StrictPerms: cfg.CacheStrictPerms}
		a.llmCache = &cache.LLMCache{Dir: filepath.Join(cfg.CacheDir, "llm"), StrictPerms: cfg.CacheStrictPerms}
	}

	httpClient := newOutboundHTTPClient()
	a.fetcher = &fetch.Client{
		HTTPClient: httpClient,
		UserAgent:  cfg.UserAgent,
		Cache:      a.httpCache,
	}

	primary, err := a.primarySource(httpClient)
	if err != nil {
		return nil, err
	}
	a.pipeline = &summary.Pipeline{
		Primary:         primary,
		Fallback:        a.fetcher,
		FallbackTimeout: cfg.FallbackTimeout,
		MaxChars:        cfg.FallbackMaxChars,
		Logger:          log.Logger.With().Str("component", "summary").Logger(),
	}
	if cfg.FallbackRespectRobots {
		a.pipeline.Robots = &robots.Checker{Getter: a.fetcher, UserAgent: cfg.UserAgent}
	}

	st, err := store.Open(ctx, store.Options{
		Driver:        cfg.StoreDriver,
		Path:          cfg.StorePath,
		MongoURI:      cfg.MongoURI,
		MongoDatabase: cfg.MongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.store = st

	var detector langdetect.Detector = langdetect.Nop{}
	if cfg.LangDetect {
		detector = &langdetect.Lingua{}
	}
	a.bookmarks = &bookmarks.Service{
		Store:     st,
		Summaries: a.pipeline,
		Pages:     a.fetcher,
		Language:  detector,
		Logger:    log.Logger.With().Str("component", "bookmarks").Logger(),
	}

	if strings.TrimSpace(cfg.JWTSecret) != "" {
		a.auth, err = auth.NewService(st, cfg.JWTSecret, cfg.TokenTTL)
		if err != nil {
			_ = st.Close()
			return nil, fmt.Errorf("init auth: %w", err)
		}
	}
	log.Debug().
		Str("store", cfg.StoreDriver).
		Str("summarizer", cfg.SummarizerMode).
		Bool("robots", cfg.FallbackRespectRobots).
		Bool("cache", cfg.CacheDir != "").
		Msg("app initialised")
	return a, nil
}

func (a *App) primarySource(httpClient *http.Client) (summary.Source, error) {
	switch strings.ToLower(strings.TrimSpace(a.cfg.SummarizerMode)) {
	case "", "reader":
		return &summary.ReaderSource{
			Base:    a.cfg.SummarizerBase,
			Fetcher: a.fetcher,
			Timeout: a.cfg.SummarizerTimeout,
		}, nil
	case "llm":
		return &summary.ChatSource{
			Client:    llm.NewOpenAI(a.cfg.LLMBaseURL, a.cfg.LLMAPIKey, httpClient),
			Model:     a.cfg.LLMModel,
			Pages:     a.fetcher,
			Extractor: extract.ReadabilityExtractor{},
			Cache:     a.llmCache,
			Timeout:   a.cfg.SummarizerTimeout,
		}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer mode %q", a.cfg.SummarizerMode)
	}
}

// prepareCaches applies the clear and max-age controls.
func prepareCaches(cfg Config) error {
	if cfg.CacheClear {
		if err := cache.ClearDir(cfg.CacheDir); err != nil {
			return fmt.Errorf("clear cache: %w", err)
		}
	}
	if cfg.CacheMaxAge > 0 {
		if _, _, err := PurgeCaches(cfg.CacheDir, cfg.CacheMaxAge); err != nil {
			return err
		}
	}
	return nil
}

// PurgeCaches removes HTTP and LLM cache entries older than maxAge and
// reports how many of each were removed.
func PurgeCaches(dir string, maxAge time.Duration) (httpRemoved, llmRemoved int, err error) {
	httpRemoved, err = cache.PurgeHTTPByAge(filepath.Join(dir, "http"), maxAge)
	if err != nil {
		return httpRemoved, 0, fmt.Errorf("purge http cache: %w", err)
	}
	llmRemoved, err = cache.PurgeLLMByAge(filepath.Join(dir, "llm"), maxAge)
	if err != nil {
		return httpRemoved, llmRemoved, fmt.Errorf("purge llm cache: %w", err)
	}
	return httpRemoved, llmRemoved, nil
}

// EnforceLLMCacheLimit keeps at most maxEntries LLM cache entries, evicting
// the least recently used.
func EnforceLLMCacheLimit(dir string, maxEntries int) (int, error) {
	return cache.EnforceLLMMaxEntries(filepath.Join(dir, "llm"), maxEntries)
}

// Store returns the open record store.
func (a *App) Store() store.Store { return a.store }

// Pipeline returns the summary pipeline.
func (a *App) Pipeline() *summary.Pipeline { return a.pipeline }

// Bookmarks returns the bookmark service.
func (a *App) Bookmarks() *bookmarks.Service { return a.bookmarks }

// Handler returns the REST API handler. It fails when no JWT secret was
// configured.
func (a *App) Handler(logger zerolog.Logger) (http.Handler, error) {
	if a.auth == nil {
		return nil, errors.New("auth is not configured (set JWT_SECRET)")
	}
	srv := &api.Server{
		Auth:      a.auth,
		Bookmarks: a.bookmarks,
		Logger:    logger,
		ClientURL: a.cfg.ClientURL,
	}
	return srv.Handler(), nil
}

// Run serves the API on cfg.Addr until ctx is cancelled, then shuts down
// gracefully.
func (a *App) Run(ctx context.Context) error {
	h, err := a.Handler(log.Logger)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      a.writeTimeout(),
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", a.cfg.Addr).Str("version", BuildVersion).Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// writeTimeout leaves room for the slowest add: primary, fallback and title
// lookup in sequence.
func (a *App) writeTimeout() time.Duration {
	primary := a.cfg.SummarizerTimeout
	if primary <= 0 {
		primary = summary.DefaultPrimaryTimeout
	}
	fallback := a.cfg.FallbackTimeout
	if fallback <= 0 {
		fallback = summary.DefaultFallbackTimeout
	}
	return primary + fallback + bookmarks.DefaultTitleTimeout + 30*time.Second
}

// Close releases the store.
func (a *App) Close() error {
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}
