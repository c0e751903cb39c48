package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// fileData is the on-disk layout of the JSON backend.
type fileData struct {
	Users     []User     `json:"users"`
	Bookmarks []Bookmark `json:"bookmarks"`
}

// JSONStore keeps everything in one indented JSON file. Every operation
// re-reads the file so that edits made by other processes are picked up;
// writes go through a temp file and rename.
type JSONStore struct {
	path string
	mu   sync.Mutex
}

// OpenJSON opens path, creating an empty database when missing.
func OpenJSON(path string) (*JSONStore, error) {
	s := &JSONStore{path: path}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create store dir: %w", err)
			}
		}
		if err := s.write(&fileData{Users: []User{}, Bookmarks: []Bookmark{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat store: %w", err)
	}
	return s, nil
}

func (s *JSONStore) read() (*fileData, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}
	var d fileData
	if err := json.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("decode store: %w", err)
	}
	return &d, nil
}

func (s *JSONStore) write(d *fileData) error {
	if d.Users == nil {
		d.Users = []User{}
	}
	if d.Bookmarks == nil {
		d.Bookmarks = []Bookmark{}
	}
	b, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write store: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// update runs fn on a fresh copy and persists it when fn succeeds.
func (s *JSONStore) update(fn func(d *fileData) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, err := s.read()
	if err != nil {
		return err
	}
	if err := fn(d); err != nil {
		return err
	}
	return s.write(d)
}

func (s *JSONStore) view() (*fileData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *JSONStore) CreateUser(_ context.Context, u User) error {
	return s.update(func(d *fileData) error {
		for _, existing := range d.Users {
			if existing.Email == u.Email {
				return ErrDuplicate
			}
		}
		d.Users = append(d.Users, u)
		return nil
	})
}

func (s *JSONStore) UserByEmail(_ context.Context, email string) (User, error) {
	d, err := s.view()
	if err != nil {
		return User{}, err
	}
	for _, u := range d.Users {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *JSONStore) ListBookmarks(_ context.Context, userID string) ([]Bookmark, error) {
	d, err := s.view()
	if err != nil {
		return nil, err
	}
	out := []Bookmark{}
	for _, b := range d.Bookmarks {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	SortByOrder(out)
	return out, nil
}

func (s *JSONStore) LoadBookmark(_ context.Context, userID, id string) (Bookmark, error) {
	d, err := s.view()
	if err != nil {
		return Bookmark{}, err
	}
	for _, b := range d.Bookmarks {
		if b.ID == id && b.UserID == userID {
			return b, nil
		}
	}
	return Bookmark{}, ErrNotFound
}

func (s *JSONStore) SaveBookmark(_ context.Context, b Bookmark) error {
	return s.update(func(d *fileData) error {
		for i := range d.Bookmarks {
			if d.Bookmarks[i].ID == b.ID {
				d.Bookmarks[i] = b
				return nil
			}
		}
		d.Bookmarks = append(d.Bookmarks, b)
		return nil
	})
}

func (s *JSONStore) DeleteBookmark(_ context.Context, userID, id string) error {
	return s.update(func(d *fileData) error {
		for i, b := range d.Bookmarks {
			if b.ID == id && b.UserID == userID {
				d.Bookmarks = append(d.Bookmarks[:i], d.Bookmarks[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
}

func (s *JSONStore) SetOrder(_ context.Context, userID string, ids []string) error {
	return s.update(func(d *fileData) error {
		pos := make(map[string]int, len(d.Bookmarks))
		for i, b := range d.Bookmarks {
			if b.UserID == userID {
				pos[b.ID] = i
			}
		}
		for _, id := range ids {
			if _, ok := pos[id]; !ok {
				return ErrNotFound
			}
		}
		for idx, id := range ids {
			d.Bookmarks[pos[id]].Order = idx
		}
		return nil
	})
}

func (s *JSONStore) CountBookmarks(_ context.Context, userID string) (int, error) {
	d, err := s.view()
	if err != nil {
		return 0, err
	}
	n := 0
	for _, b := range d.Bookmarks {
		if b.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (s *JSONStore) Close() error { return nil }
