package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/elicitlabs/elicit/pkg/collection"
	"github.com/elicitlabs/elicit/pkg/errors"
)

// maxBackups is how many timestamped backups of the collection file are
// kept before the oldest is removed.
const maxBackups = 10

// FileStore persists the collection as a JSON file, writing a timestamped
// backup of the previous contents on every save.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore creates a file-backed store at the given path. If path is
// empty, defaults to ~/.config/elicit/collection.json.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home dir: %w", err)
		}
		path = filepath.Join(home, ".config", "elicit", "collection.json")
	}
	if err := errors.ValidateStoragePath(path); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &FileStore{path: path}, nil
}

// Load reads the collection file. A missing file yields a new empty
// collection.
func (s *FileStore) Load(ctx context.Context) (*collection.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return collection.New(""), nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open collection file")
	}
	defer f.Close()

	c, err := collection.Read(f)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "parse collection file %s", s.path)
	}
	return c, nil
}

// Save backs up the current file, then writes the collection atomically by
// renaming a temp file into place.
func (s *FileStore) Save(ctx context.Context, c *collection.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backup(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".collection-*.json")
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if err := collection.Write(c, tmp); err != nil {
		tmp.Close()
		return errors.Wrap(errors.ErrCodeStorage, err, "write collection")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "close temp file")
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "replace collection file")
	}
	return nil
}

// Close does nothing for a file store.
func (s *FileStore) Close() error { return nil }

// Path returns the collection file path.
func (s *FileStore) Path() string { return s.path }

// backup copies the current file to a timestamped sibling and drops the
// oldest backups beyond maxBackups. No-op when the file does not exist yet.
func (s *FileStore) backup() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "read collection for backup")
	}

	// Nanosecond precision keeps rapid successive saves from clobbering
	// each other's backup.
	stamp := time.Now().Format("20060102-150405.000000000")
	backupPath := fmt.Sprintf("%s.%s.bak", s.path, stamp)
	if err := os.WriteFile(backupPath, data, 0644); err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "write backup")
	}

	return s.rotateBackups()
}

// rotateBackups removes the oldest backups, keeping maxBackups. Backup
// names embed a sortable timestamp, so lexical order is age order.
func (s *FileStore) rotateBackups() error {
	pattern := s.path + ".*.bak"
	backups, err := filepath.Glob(pattern)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorage, err, "list backups")
	}
	if len(backups) <= maxBackups {
		return nil
	}

	slices.Sort(backups)
	for _, old := range backups[:len(backups)-maxBackups] {
		if !strings.HasSuffix(old, ".bak") {
			continue
		}
		os.Remove(old)
	}
	return nil
}

var _ Store = (*FileStore)(nil)
