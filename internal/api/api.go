// Package api exposes the auth and bookmark services as a JSON REST API.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/hyperifyio/bookmarkd/internal/auth"
	"github.com/hyperifyio/bookmarkd/internal/bookmarks"
)

// DevClientOrigin is always allowed so a local client dev server works.
const DevClientOrigin = "http://localhost:5173"

// Server holds the services behind the routes.
type Server struct {
	Auth      *auth.Service
	Bookmarks *bookmarks.Service
	Logger    zerolog.Logger
	// ClientURL is the deployed client origin allowed by CORS.
	ClientURL string
}

// Handler returns the full middleware-wrapped router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	mux.HandleFunc("POST /api/auth/register", s.register)
	mux.HandleFunc("POST /api/auth/login", s.login)

	guard := s.Auth.Middleware
	mux.Handle("GET /api/bookmarks", guard(http.HandlerFunc(s.listBookmarks)))
	mux.Handle("POST /api/bookmarks", guard(http.HandlerFunc(s.addBookmark)))
	mux.Handle("GET /api/bookmarks/export", guard(http.HandlerFunc(s.exportBookmarks)))
	mux.Handle("POST /api/bookmarks/reorder", guard(http.HandlerFunc(s.reorderBookmarks)))
	mux.Handle("GET /api/bookmarks/{id}", guard(http.HandlerFunc(s.getBookmark)))
	mux.Handle("PATCH /api/bookmarks/{id}/tags", guard(http.HandlerFunc(s.updateTags)))
	mux.Handle("POST /api/bookmarks/{id}/refresh-summary", guard(http.HandlerFunc(s.refreshSummary)))
	mux.Handle("DELETE /api/bookmarks/{id}", guard(http.HandlerFunc(s.deleteBookmark)))

	var h http.Handler = mux
	h = s.corsHandler().Handler(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})(h)
	h = hlog.RequestIDHandler("req_id", "Request-Id")(h)
	h = hlog.NewHandler(s.Logger)(h)
	return h
}

func (s *Server) corsHandler() *cors.Cors {
	origins := []string{DevClientOrigin}
	if s.ClientURL != "" && s.ClientURL != DevClientOrigin {
		origins = append(origins, s.ClientURL)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})
}

// clientErrors map to 400 with their own text as message.
var clientErrors = []error{
	auth.ErrMissingCredentials,
	auth.ErrEmailTaken,
	auth.ErrInvalidCredentials,
	bookmarks.ErrURLRequired,
	bookmarks.ErrOrderNotArray,
	bookmarks.ErrInvalidOrder,
}

// fail writes err as a JSON message. Unexpected errors become 500 with
// fallback as message and are logged.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, errBadJSON) {
		writeMessage(w, http.StatusBadRequest, errBadJSON.Error())
		return
	}
	for _, ce := range clientErrors {
		if errors.Is(err, ce) {
			writeMessage(w, http.StatusBadRequest, ce.Error())
			return
		}
	}
	if errors.Is(err, bookmarks.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, bookmarks.ErrNotFound.Error())
		return
	}
	hlog.FromRequest(r).Error().Err(err).Msg(fallback)
	writeMessage(w, http.StatusInternalServerError, fallback)
}

func (s *Server) userID(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.ID
}

func attachment(name string) string {
	return fmt.Sprintf("attachment; filename=%q", name)
}
