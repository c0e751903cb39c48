// Package store persists users and their bookmarks. Three backends share one
// contract: a JSON file (the default), SQLite and MongoDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a record does not exist for the user.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a user email is already registered.
	ErrDuplicate = errors.New("duplicate")
)

// User is a registered account. PasswordHash is a bcrypt hash.
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"password" bson:"password"`
	CreatedAt    time.Time `json:"createdAt" bson:"created_at"`
}

// Bookmark is a saved URL with its enrichment. SummaryError and
// SummaryStatus are nil when absent.
type Bookmark struct {
	ID              string    `json:"id" bson:"_id"`
	UserID          string    `json:"userId" bson:"user_id"`
	URL             string    `json:"url" bson:"url"`
	Title           string    `json:"title" bson:"title"`
	Favicon         string    `json:"favicon" bson:"favicon"`
	Summary         string    `json:"summary" bson:"summary"`
	Tags            []string  `json:"tags" bson:"tags"`
	Order           int       `json:"order" bson:"order"`
	CreatedAt       time.Time `json:"createdAt" bson:"created_at"`
	SummaryError    *string   `json:"summaryError" bson:"summary_error"`
	SummaryStatus   *int      `json:"summaryStatus" bson:"summary_status"`
	FallbackUsed    bool      `json:"fallbackUsed" bson:"fallback_used"`
	SummaryLanguage string    `json:"summaryLanguage,omitempty" bson:"summary_language,omitempty"`
	SummarySource   string    `json:"summarySource,omitempty" bson:"summary_source,omitempty"`
	SummarizedAt    time.Time `json:"summarizedAt" bson:"summarized_at"`
}

// Store is the persistence contract used by the auth and bookmark services.
// Implementations are safe for concurrent use.
type Store interface {
	CreateUser(ctx context.Context, u User) error
	UserByEmail(ctx context.Context, email string) (User, error)

	// ListBookmarks returns the user's bookmarks sorted by Order.
	ListBookmarks(ctx context.Context, userID string) ([]Bookmark, error)
	LoadBookmark(ctx context.Context, userID, id string) (Bookmark, error)
	// SaveBookmark inserts or replaces the bookmark with the same ID.
	SaveBookmark(ctx context.Context, b Bookmark) error
	DeleteBookmark(ctx context.Context, userID, id string) error
	// SetOrder sets Order to the index of each id. Every id must belong to
	// the user or nothing is changed and ErrNotFound is returned.
	SetOrder(ctx context.Context, userID string, ids []string) error
	CountBookmarks(ctx context.Context, userID string) (int, error)

	Close() error
}

// Options selects and configures a backend.
type Options struct {
	// Driver is "json", "sqlite" or "mongo". Empty means "json".
	Driver string
	// Path is the JSON file or SQLite database path.
	Path string
	// MongoURI and MongoDatabase configure the mongo driver.
	MongoURI      string
	MongoDatabase string
}

// Open returns the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", "json":
		path := opts.Path
		if path == "" {
			path = "db.json"
		}
		return OpenJSON(path)
	case "sqlite":
		path := opts.Path
		if path == "" {
			path = "bookmarks.db"
		}
		return OpenSQLite(path)
	case "mongo", "mongodb":
		return OpenMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

// SortByOrder orders bookmarks by Order, then CreatedAt, in place.
func SortByOrder(bs []Bookmark) {
	sort.SliceStable(bs, func(i, j int) bool {
		if bs[i].Order != bs[j].Order {
			return bs[i].Order < bs[j].Order
		}
		return bs[i].CreatedAt.Before(bs[j].CreatedAt)
	})
}
