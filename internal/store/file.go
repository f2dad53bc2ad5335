package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"
)

// FileStore persists entries as one JSON document on disk. Reads are served
// from memory; every Set rewrites the file atomically.
type FileStore struct {
	path  string
	quota int64
	log   *zap.Logger

	mu   sync.RWMutex
	data map[string]string
}

// OpenFile loads the store at path, creating parent directories as needed. A
// missing file is an empty store.
func OpenFile(path string, quota int64, logger *zap.Logger) (*FileStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("store path is required")
	}
	if quota <= 0 {
		quota = DefaultQuota
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store: create directory: %w", err)
	}

	s := &FileStore{
		path:  path,
		quota: quota,
		log:   logger.With(zap.String("path", path)),
		data:  make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.log.Debug("store load miss")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("store: read %s: %w", path, err)
	}
	if len(raw) > 0 {
		if err := sonic.ConfigStd.Unmarshal(raw, &s.data); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", path, err)
		}
	}
	s.log.Debug("store load ok", zap.Int("keys", len(s.data)))
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

// Get implements Store.
func (s *FileStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.data[key]
	return value, ok, nil
}

// Set implements Store.
func (s *FileStore) Set(key, value string) error {
	if key == "" {
		return fmt.Errorf("store: set: %w", ErrEmptyKey)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if usageAfter(s.data, key, value) > s.quota {
		s.log.Warn("store quota exceeded", zap.String("key", key), zap.Int64("quota", s.quota))
		return fmt.Errorf("store: set %q: %w", key, ErrQuotaExceeded)
	}

	previous, existed := s.data[key]
	s.data[key] = value
	if err := s.flush(); err != nil {
		if existed {
			s.data[key] = previous
		} else {
			delete(s.data, key)
		}
		s.log.Warn("store save failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("store: set %q: %w", key, err)
	}
	return nil
}

// flush writes the whole map through a temp file and rename. Caller holds mu.
func (s *FileStore) flush() error {
	data, err := sonic.ConfigStd.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".store-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}
