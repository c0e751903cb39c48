package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hyperifyio/bookmarkd/internal/store"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.OpenJSON(filepath.Join(t.TempDir(), "db.json"))
	if err != nil {
		t.Fatal(err)
	}
	s, err := NewService(st, "test-secret", 0)
	if err != nil {
		t.Fatal(err)
	}
	s.Cost = bcrypt.MinCost
	return s
}

func TestNewService_RequiresSecret(t *testing.T) {
	if _, err := NewService(nil, "  ", 0); !errors.Is(err, ErrNoSecret) {
		t.Fatalf("expected ErrNoSecret, got %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	s := newService(t)

	if _, err := s.Register(ctx, "", "pw"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected missing credentials, got %v", err)
	}
	u, err := s.Register(ctx, "a@example.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.PasswordHash == "secret" || u.ID == "" {
		t.Fatalf("password must be hashed and id assigned: %+v", u)
	}
	if _, err := s.Register(ctx, "a@example.com", "other"); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if _, err := s.Login(ctx, "a@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if _, err := s.Login(ctx, "nobody@example.com", "secret"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected invalid credentials for unknown email, got %v", err)
	}
	token, err := s.Login(ctx, "a@example.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	id, err := s.Verify(token)
	if err != nil || id.ID != u.ID || id.Email != "a@example.com" {
		t.Fatalf("verify: %+v %v", id, err)
	}
}

func TestVerify_RejectsExpiredAndForeignTokens(t *testing.T) {
	s := newService(t)
	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return issued }
	token, err := s.Issue(Identity{ID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	s.now = func() time.Time { return issued.Add(59 * time.Minute) }
	if _, err := s.Verify(token); err != nil {
		t.Fatalf("token should still be valid: %v", err)
	}
	s.now = func() time.Time { return issued.Add(61 * time.Minute) }
	if _, err := s.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expiry, got %v", err)
	}

	other := newService(t)
	other.Secret = []byte("different")
	other.now = func() time.Time { return issued }
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected signature failure, got %v", err)
	}
}

func TestMiddleware(t *testing.T) {
	s := newService(t)
	token, err := s.Issue(Identity{ID: "u1", Email: "a@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	h := s.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := FromContext(r.Context())
		if !ok {
			t.Error("identity missing from context")
		}
		_, _ = w.Write([]byte(id.ID))
	}))

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing", "", http.StatusUnauthorized, "No token, authorization denied"},
		{"garbage", "Bearer nope", http.StatusUnauthorized, "Token is not valid"},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized, "No token, authorization denied"},
		{"valid", "Bearer " + token, http.StatusOK, "u1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/bookmarks", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status || !strings.Contains(rec.Body.String(), tc.body) {
				t.Fatalf("got %d %q", rec.Code, rec.Body.String())
			}
		})
	}
}
