// Package tokenstore persists the access/refresh/id token triple in a
// single JSON file. The three tokens are written atomically: a reader
// never observes a partially updated set.
package tokenstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/model"
)

// Store is a file-backed token store. A failed or missing read is
// indistinguishable from "no tokens": callers must treat absence as
// unauthenticated.
type Store struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

// New creates a Store backed by the given file path. The file and its
// parent directory are created lazily on first Save.
func New(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log.With().Str("component", "tokenstore").Logger()}
}

// Save persists all three tokens atomically via a temp file and rename.
func (s *Store) Save(access, refresh, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(model.TokenSet{
		AccessToken:  access,
		RefreshToken: refresh,
		IDToken:      id,
	})
	if err != nil {
		return fmt.Errorf("marshal tokens: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write tokens: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace token file: %w", err)
	}
	return nil
}

// AccessToken returns the last saved access token, if any.
func (s *Store) AccessToken() (string, bool) {
	ts, ok := s.read()
	if !ok || ts.AccessToken == "" {
		return "", false
	}
	return ts.AccessToken, true
}

// RefreshToken returns the last saved refresh token, if any.
func (s *Store) RefreshToken() (string, bool) {
	ts, ok := s.read()
	if !ok || ts.RefreshToken == "" {
		return "", false
	}
	return ts.RefreshToken, true
}

// IDToken returns the last saved id token, if any.
func (s *Store) IDToken() (string, bool) {
	ts, ok := s.read()
	if !ok || ts.IDToken == "" {
		return "", false
	}
	return ts.IDToken, true
}

// Clear erases all three tokens. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token file: %w", err)
	}
	return nil
}

func (s *Store) read() (model.TokenSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ts model.TokenSet
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Msg("Token file unreadable, treating as absent")
		}
		return ts, false
	}
	if err := json.Unmarshal(data, &ts); err != nil {
		s.log.Warn().Err(err).Msg("Token file corrupt, treating as absent")
		return ts, false
	}
	return ts, true
}
