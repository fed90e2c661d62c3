package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// SuccessMarker is written into an output directory once every part file is complete.
const SuccessMarker = "_SUCCESS"

type Storage struct{}

// FileStats holds metadata about a file without reading its contents.
type FileStats struct {
	SizeBytes int64
	ModTime   time.Time
}

// PartFileName is the name of the file reducer i writes.
func PartFileName(i int) string {
	return fmt.Sprintf("part-r-%05d", i)
}

// Reset removes dir and everything under it, then recreates it empty.
func (s *Storage) Reset(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("error removing output directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating output directory: %w", err)
	}
	return nil
}

// CreatePart creates (or truncates) the part file for reducer i in dir.
func (s *Storage) CreatePart(dir string, i int) (*os.File, error) {
	f, err := os.Create(filepath.Join(dir, PartFileName(i)))
	if err != nil {
		return nil, fmt.Errorf("error creating part file: %w", err)
	}
	return f, nil
}

// MarkSuccess writes the empty success marker into dir.
func (s *Storage) MarkSuccess(dir string) error {
	return s.SaveFile(filepath.Join(dir, SuccessMarker), nil)
}

// Succeeded reports whether dir holds a completed job's output.
func (s *Storage) Succeeded(dir string) bool {
	return s.HasFile(filepath.Join(dir, SuccessMarker))
}

func (s *Storage) SaveFile(filePath string, content []byte) error {
	err := os.WriteFile(filePath, content, 0644)
	if err != nil {
		return fmt.Errorf("error saving file: %w", err)
	}

	return nil
}

func (s *Storage) ReadFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}
	return data, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !os.IsNotExist(err)
}

func (s *Storage) HasFile(fn string) bool {
	return fileExists(fn)
}

// GetFileStats returns metadata about a file using os.Stat (no I/O overhead).
func (s *Storage) GetFileStats(filePath string) (*FileStats, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, fmt.Errorf("error getting file stats: %w", err)
	}

	return &FileStats{
		SizeBytes: info.Size(),
		ModTime:   info.ModTime(),
	}, nil
}
