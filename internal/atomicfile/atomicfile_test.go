package atomicfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile_CreatesAndReplaces(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passes.json")

	if err := WriteFile(path, []byte("first"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFile(path, []byte("second"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(data) != "second" {
		t.Errorf("content = %q, want second", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}
}

func TestWriteFile_LeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passes.json")

	for i := 0; i < 3; i++ {
		if err := WriteFile(path, []byte("x"), 0o600); err != nil {
			t.Fatalf("write %d: %v", i, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "passes.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("unexpected directory content: %v", names)
	}
}

func TestWriteFile_MissingDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "passes.json")

	err := WriteFile(path, []byte("x"), 0o644)
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if aerr.Op != OpWrite {
		t.Errorf("op = %q, want %q", aerr.Op, OpWrite)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected cause to be ErrNotExist, got %v", err)
	}
}

func TestWriteFile_RenameOntoDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "passes.json")
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// A non-empty directory cannot be replaced by a file.
	if err := os.WriteFile(filepath.Join(path, "keep"), nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	err := WriteFile(path, []byte("x"), 0o644)
	var aerr *Error
	if !errors.As(err, &aerr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if aerr.Op != OpRename {
		t.Errorf("op = %q, want %q", aerr.Op, OpRename)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("temporary file was not cleaned up: %d entries", len(entries))
	}
}
