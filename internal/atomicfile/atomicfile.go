// Package atomicfile replaces files so that readers see either the old or
// the new content, never a partial write.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// Operation names reported in Error.
const (
	OpWrite  = "write"
	OpRename = "rename"
)

// Error reports which step of an atomic replace failed.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// WriteFile writes data to a temporary file next to path, fsyncs it and
// renames it over path. The parent directory must exist. After the rename
// the directory itself is synced so the new name survives power loss.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	file, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &Error{Op: OpWrite, Path: path, Err: err}
	}
	tmp := file.Name()

	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tmp)
		return &Error{Op: OpWrite, Path: path, Err: err}
	}
	if err := file.Chmod(perm); err != nil {
		file.Close()
		os.Remove(tmp)
		return &Error{Op: OpWrite, Path: path, Err: err}
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tmp)
		return &Error{Op: OpWrite, Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return &Error{Op: OpWrite, Path: path, Err: err}
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return &Error{Op: OpRename, Path: path, Err: err}
	}

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
