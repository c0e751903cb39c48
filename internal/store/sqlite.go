package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	password   TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS bookmarks (
	id               TEXT PRIMARY KEY,
	user_id          TEXT NOT NULL,
	url              TEXT NOT NULL,
	title            TEXT NOT NULL DEFAULT '',
	favicon          TEXT NOT NULL DEFAULT '',
	summary          TEXT NOT NULL DEFAULT '',
	tags             TEXT NOT NULL DEFAULT '[]',
	ord              INTEGER NOT NULL DEFAULT 0,
	created_at       TEXT NOT NULL,
	summary_error    TEXT,
	summary_status   INTEGER,
	fallback_used    INTEGER NOT NULL DEFAULT 0,
	summary_language TEXT NOT NULL DEFAULT '',
	summary_source   TEXT NOT NULL DEFAULT '',
	summarized_at    TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_bookmarks_user ON bookmarks(user_id, ord);
`

const bookmarkColumns = `id, user_id, url, title, favicon, summary, tags, ord, created_at,
	summary_error, summary_status, fallback_used, summary_language, summary_source, summarized_at`

// SQLiteStore keeps users and bookmarks in a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and ensures the schema.
// ":memory:" is accepted for tests.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection serialises writers and keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func (s *SQLiteStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, password, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, formatTime(u.CreatedAt))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	var created string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, password, created_at FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("query user: %w", err)
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBookmark(r rowScanner) (Bookmark, error) {
	var (
		b                         Bookmark
		tags, created, summarized string
		errText                   sql.NullString
		status                    sql.NullInt64
		fallback                  int
	)
	if err := r.Scan(&b.ID, &b.UserID, &b.URL, &b.Title, &b.Favicon, &b.Summary, &tags, &b.Order,
		&created, &errText, &status, &fallback, &b.SummaryLanguage, &b.SummarySource, &summarized); err != nil {
		return Bookmark{}, err
	}
	if err := json.Unmarshal([]byte(tags), &b.Tags); err != nil {
		return Bookmark{}, fmt.Errorf("decode tags: %w", err)
	}
	if b.Tags == nil {
		b.Tags = []string{}
	}
	b.CreatedAt = parseTime(created)
	b.SummarizedAt = parseTime(summarized)
	if errText.Valid {
		v := errText.String
		b.SummaryError = &v
	}
	if status.Valid {
		v := int(status.Int64)
		b.SummaryStatus = &v
	}
	b.FallbackUsed = fallback != 0
	return b, nil
}

func (s *SQLiteStore) ListBookmarks(ctx context.Context, userID string) ([]Bookmark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE user_id = ? ORDER BY ord, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("query bookmarks: %w", err)
	}
	defer rows.Close()
	out := []Bookmark{}
	for rows.Next() {
		b, err := scanBookmark(rows)
		if err != nil {
			return nil, fmt.Errorf("scan bookmark: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookmarks: %w", err)
	}
	SortByOrder(out)
	return out, nil
}

func (s *SQLiteStore) LoadBookmark(ctx context.Context, userID, id string) (Bookmark, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookmarkColumns+` FROM bookmarks WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBookmark(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Bookmark{}, ErrNotFound
	}
	if err != nil {
		return Bookmark{}, fmt.Errorf("query bookmark: %w", err)
	}
	return b, nil
}

func (s *SQLiteStore) SaveBookmark(ctx context.Context, b Bookmark) error {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	encoded, err := json.Marshal(tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	var errText sql.NullString
	if b.SummaryError != nil {
		errText = sql.NullString{String: *b.SummaryError, Valid: true}
	}
	var status sql.NullInt64
	if b.SummaryStatus != nil {
		status = sql.NullInt64{Int64: int64(*b.SummaryStatus), Valid: true}
	}
	fallback := 0
	if b.FallbackUsed {
		fallback = 1
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO bookmarks (`+bookmarkColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.UserID, b.URL, b.Title, b.Favicon, b.Summary, string(encoded), b.Order,
		formatTime(b.CreatedAt), errText, status, fallback, b.SummaryLanguage, b.SummarySource,
		formatTime(b.SummarizedAt))
	if err != nil {
		return fmt.Errorf("save bookmark: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteBookmark(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bookmarks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetOrder(ctx context.Context, userID string, ids []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	for idx, id := range ids {
		res, err := tx.ExecContext(ctx, `UPDATE bookmarks SET ord = ? WHERE id = ? AND user_id = ?`, idx, id, userID)
		if err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) CountBookmarks(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookmarks WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count bookmarks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }
