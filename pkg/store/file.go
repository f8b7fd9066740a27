package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/matzehuels/mixorder/pkg/errors"
)

// FileStore keeps each set in <dir>/<id>.json.
type FileStore struct {
	mu      sync.RWMutex
	baseDir string
	now     func() time.Time
}

// NewFileStore creates a file-based store.
// If baseDir is empty, defaults to ~/.config/mixorder/sets/
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		baseDir = filepath.Join(home, ".config", "mixorder", "sets")
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("create set dir: %w", err)
	}
	return &FileStore{baseDir: baseDir, now: time.Now}, nil
}

func (s *FileStore) setPath(id string) string {
	return filepath.Join(s.baseDir, id+".json")
}

func (s *FileStore) Save(ctx context.Context, set *SavedSet) error {
	if err := prepare(set, s.now()); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal set: %w", err)
	}
	if err := os.WriteFile(s.setPath(set.ID), data, 0600); err != nil {
		return fmt.Errorf("write set file: %w", err)
	}
	return nil
}

func (s *FileStore) Get(ctx context.Context, id string) (*SavedSet, error) {
	if err := errors.ValidateSetID(id); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.setPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, notFound(id)
		}
		return nil, fmt.Errorf("read set file: %w", err)
	}

	var set SavedSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse set %s: %w", id, err)
	}
	return &set, nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("read set dir: %w", err)
	}

	var out []Summary
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}
		var set SavedSet
		if err := json.Unmarshal(data, &set); err != nil {
			continue
		}
		out = append(out, set.Summary())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := errors.ValidateSetID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.setPath(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove set file: %w", err)
	}
	return nil
}

func (s *FileStore) Close() error { return nil }

// Path returns the base directory for set files.
func (s *FileStore) Path() string {
	return s.baseDir
}

var _ Store = (*FileStore)(nil)
