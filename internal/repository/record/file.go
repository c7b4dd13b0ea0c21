package record

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/tether-home/tether/internal/atomicfile"
	"github.com/tether-home/tether/internal/domain"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileStore keeps the pass record in a single JSON file.
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by the file at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the file path.
func (s *FileStore) Location() string { return s.path }

// Read returns the file content, or domain.ErrRecordNotFound when the
// file does not exist.
func (s *FileStore) Read(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, domain.NewStorageError(domain.ErrReadFailure, domain.OpRead, s.path, err)
	}
	return data, nil
}

// Prepare creates the parent directory.
func (s *FileStore) Prepare(_ context.Context) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return domain.NewStorageError(domain.ErrStorageUnavailable, domain.OpPrepare, dir, err)
	}
	return nil
}

// Write atomically replaces the file with data.
func (s *FileStore) Write(_ context.Context, data []byte) error {
	if err := atomicfile.WriteFile(s.path, data, filePerm); err != nil {
		op := domain.OpWrite
		var aerr *atomicfile.Error
		if errors.As(err, &aerr) && aerr.Op == atomicfile.OpRename {
			op = domain.OpRename
		}
		return domain.NewStorageError(domain.ErrWriteFailure, op, s.path, errors.Unwrap(err))
	}
	return nil
}

// Ping checks that the parent directory is reachable.
func (s *FileStore) Ping(_ context.Context) error {
	dir := filepath.Dir(s.path)
	info, err := os.Stat(dir)
	if err != nil {
		return domain.NewStorageError(domain.ErrStorageUnavailable, domain.OpPrepare, dir, err)
	}
	if !info.IsDir() {
		return domain.NewStorageError(domain.ErrStorageUnavailable, domain.OpPrepare, dir, fs.ErrInvalid)
	}
	return nil
}
