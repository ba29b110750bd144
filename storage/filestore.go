package storage

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements Store on the local filesystem.
// Payloads live at {baseDir}/{hex(key[:1])}/{hex(key)}; the first byte
// shards the directory.
type FileStore struct {
	baseDir string
	mu      sync.RWMutex
}

var _ Store = (*FileStore)(nil)

// NewFileStore creates a file-based payload store, typically at
// ~/.doginals/payloads. The directory is created if it does not exist.
func NewFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// KeyToPath converts a key to its filesystem path under baseDir.
func KeyToPath(baseDir string, key []byte) string {
	hexKey := hex.EncodeToString(key)
	return filepath.Join(baseDir, hexKey[:2], hexKey)
}

func (s *FileStore) path(key []byte) string {
	return KeyToPath(s.baseDir, key)
}

// Put writes payload through a temp file and rename so a crash never
// leaves a truncated payload under a valid key.
func (s *FileStore) Put(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrEmptyPayload
	}
	key := Key(payload)
	path := s.path(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(path); err == nil {
		return key, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".put-*")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return key, nil
}

// Get returns the payload for key and verifies it still hashes to key.
func (s *FileStore) Get(key []byte) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	if !bytes.Equal(Key(data), key) {
		return nil, fmt.Errorf("%w: %x", ErrCorrupt, key)
	}
	return data, nil
}

// Has reports whether a payload exists for key.
func (s *FileStore) Has(key []byte) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return true, nil
}

// Delete removes the payload for key.
func (s *FileStore) Delete(key []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return nil
}

// Size returns the stored size of the payload for key.
func (s *FileStore) Size(key []byte) (int64, error) {
	if err := validateKey(key); err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := os.Stat(s.path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}
	return info.Size(), nil
}

// List scans the shard directories and returns every stored key.
// Entries that are not 64-character hex names are skipped.
func (s *FileStore) List() ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	shards, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIOFailure, err)
	}

	var keys [][]byte
	for _, shard := range shards {
		if !shard.IsDir() || len(shard.Name()) != 2 {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.baseDir, shard.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() {
				continue
			}
			key, err := hex.DecodeString(f.Name())
			if err != nil || len(key) != KeySize {
				continue
			}
			keys = append(keys, key)
		}
	}
	return keys, nil
}
