package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/okian/podium/internal/domain/distribution"
)

// FileStore keeps one distribution file per key under a directory. The files
// use the same format the precompute tool writes.
type FileStore struct {
	dir string
}

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("repository.new_file_store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("repository.new_file_store: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the root directory.
func (s *FileStore) Dir() string { return s.dir }

// Path returns the file a key is stored in.
func (s *FileStore) Path(key Key) string {
	return filepath.Join(s.dir, key.FileName())
}

// Save writes m to the key's file.
func (s *FileStore) Save(ctx context.Context, key Key, m distribution.Multiplicities) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return WriteDistributionFile(s.Path(key), m)
}

// Load reads the key's file. A file whose outcome count does not fit the key
// is ErrMalformed.
func (s *FileStore) Load(ctx context.Context, key Key) (distribution.Multiplicities, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m, err := ReadDistributionFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := key.check(m); err != nil {
		return nil, err
	}
	return m, nil
}
