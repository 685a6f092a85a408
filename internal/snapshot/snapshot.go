// Package snapshot keeps a best-effort on-device copy of the last
// successful student-submission fetch. One slot, last write wins. It is
// only ever a read fallback: never authoritative, never merged with live
// data.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/setorandev/setoran-client/internal/model"
)

// Cache is a single-slot file-backed snapshot store. The slot records
// which student it belongs to; Load refuses to serve a snapshot for a
// different NIM rather than handing back cross-student data.
type Cache struct {
	path string
	mu   sync.Mutex
	log  zerolog.Logger
}

type slot struct {
	NIM     string              `json:"nim"`
	SavedAt time.Time           `json:"saved_at"`
	Record  model.StudentDetail `json:"record"`
}

// New creates a Cache backed by the given file path.
func New(path string, log zerolog.Logger) *Cache {
	return &Cache{path: path, log: log.With().Str("component", "snapshot").Logger()}
}

// Save overwrites the slot with the given student's detail.
func (c *Cache) Save(nim string, record *model.StudentDetail) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := json.Marshal(slot{NIM: nim, SavedAt: time.Now().UTC(), Record: *record})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmpName, c.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// Load returns the cached detail for the given student, if the slot holds
// one. A slot belonging to another student, a missing file, or a corrupt
// file all read as absent.
func (c *Cache) Load(nim string) (*model.StudentDetail, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			c.log.Warn().Err(err).Msg("Snapshot unreadable, treating as absent")
		}
		return nil, false
	}

	var s slot
	if err := json.Unmarshal(data, &s); err != nil {
		c.log.Warn().Err(err).Msg("Snapshot corrupt, treating as absent")
		return nil, false
	}
	if s.NIM != nim {
		c.log.Debug().
			Str("cached_nim", s.NIM).
			Str("requested_nim", nim).
			Msg("Snapshot belongs to another student, ignoring")
		return nil, false
	}
	return &s.Record, true
}
