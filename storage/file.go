package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FileState stores the document in a single local file. Save writes to a
// temp file in the same directory and renames it over the target, so a crash
// mid-write leaves the previous valid document in place.
type FileState struct {
	FilePath string
}

func NewFileState(filePath string) *FileState {
	return &FileState{FilePath: filePath}
}

func (f *FileState) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.FilePath)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", f.FilePath, ErrNotExist)
	}
	return data, err
}

func (f *FileState) Save(ctx context.Context, data []byte) error {
	dir := filepath.Dir(f.FilePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.FilePath)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.FilePath); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", f.FilePath, err)
	}
	return nil
}
