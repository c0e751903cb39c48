package api

import (
	"encoding/json"
	"net/http"

	"github.com/hyperifyio/bookmarkd/internal/bookmarks"
	"github.com/hyperifyio/bookmarkd/internal/export"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "Registration failed")
		return
	}
	if _, err := s.Auth.Register(r.Context(), body.Email, body.Password); err != nil {
		s.fail(w, r, err, "Registration failed")
		return
	}
	writeMessage(w, http.StatusCreated, "User registered successfully")
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var body credentials
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "Login failed")
		return
	}
	token, err := s.Auth.Login(r.Context(), body.Email, body.Password)
	if err != nil {
		s.fail(w, r, err, "Login failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) listBookmarks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := bookmarks.ParseFilter(q.Get("tag"), q.Get("tags"), q.Get("mode"))
	list, err := s.Bookmarks.List(r.Context(), s.userID(r), f)
	if err != nil {
		s.fail(w, r, err, "Error fetching bookmarks")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) addBookmark(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL  string          `json:"url"`
		Tags json.RawMessage `json:"tags"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "Error saving bookmark")
		return
	}
	tags, _ := stringList(body.Tags)
	b, err := s.Bookmarks.Add(r.Context(), s.userID(r), body.URL, tags)
	if err != nil {
		s.fail(w, r, err, "Error saving bookmark")
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

func (s *Server) getBookmark(w http.ResponseWriter, r *http.Request) {
	b, err := s.Bookmarks.Get(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "Error fetching bookmark")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) updateTags(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Tags json.RawMessage `json:"tags"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "Error updating tags")
		return
	}
	tags, ok := stringList(body.Tags)
	if !ok {
		writeMessage(w, http.StatusBadRequest, "tags must be array of strings")
		return
	}
	b, err := s.Bookmarks.UpdateTags(r.Context(), s.userID(r), r.PathValue("id"), tags)
	if err != nil {
		s.fail(w, r, err, "Error updating tags")
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) reorderBookmarks(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Order json.RawMessage `json:"order"`
	}
	if err := decodeJSON(r, &body); err != nil {
		s.fail(w, r, err, "Error reordering bookmarks")
		return
	}
	ids, isArray, allStrings := idList(body.Order)
	if !isArray {
		s.fail(w, r, bookmarks.ErrOrderNotArray, "Error reordering bookmarks")
		return
	}
	if !allStrings {
		s.fail(w, r, bookmarks.ErrInvalidOrder, "Error reordering bookmarks")
		return
	}
	if err := s.Bookmarks.Reorder(r.Context(), s.userID(r), ids); err != nil {
		s.fail(w, r, err, "Error reordering bookmarks")
		return
	}
	writeMessage(w, http.StatusOK, "Reordered")
}

type refreshResponse struct {
	Summary      string `json:"summary"`
	FallbackUsed bool   `json:"fallbackUsed"`
	Note         string `json:"note,omitempty"`
}

type refreshFailure struct {
	Message string  `json:"message"`
	Error   *string `json:"error"`
	Status  *int    `json:"status"`
}

func (s *Server) refreshSummary(w http.ResponseWriter, r *http.Request) {
	b, result, err := s.Bookmarks.RefreshSummary(r.Context(), s.userID(r), r.PathValue("id"))
	if err != nil {
		s.fail(w, r, err, "Error refreshing summary")
		return
	}
	if result.IsUnavailable() {
		writeJSON(w, http.StatusBadGateway, refreshFailure{
			Message: "Failed to refresh summary",
			Error:   b.SummaryError,
			Status:  b.SummaryStatus,
		})
		return
	}
	resp := refreshResponse{Summary: b.Summary, FallbackUsed: b.FallbackUsed}
	if b.FallbackUsed {
		resp.Note = "Fallback extraction used"
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	if err := s.Bookmarks.Delete(r.Context(), s.userID(r), r.PathValue("id")); err != nil {
		s.fail(w, r, err, "Error deleting bookmark")
		return
	}
	writeMessage(w, http.StatusOK, "Deleted successfully")
}

func (s *Server) exportBookmarks(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.Bookmarks.List(r.Context(), s.userID(r), bookmarks.Filter{})
	if err != nil {
		s.fail(w, r, err, "Error exporting bookmarks")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", attachment("bookmarks."+format.Extension()))
	if err := export.Write(w, format, "Bookmarks", list); err != nil {
		s.Logger.Error().Err(err).Msg("export failed")
	}
}
