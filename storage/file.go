package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ruteri/spe-sentiment-envelope/interfaces"
)

// FileSource reads a trust config from the local file system.
type FileSource struct {
	path        string
	log         *slog.Logger
	locationURI string
}

// NewFileSource creates a file source for the given path.
func NewFileSource(path string, log *slog.Logger) *FileSource {
	return &FileSource{
		path:        path,
		log:         log,
		locationURI: fmt.Sprintf("file://%s", path),
	}
}

// Fetch reads the file. Returns ErrContentNotFound if it doesn't exist.
func (s *FileSource) Fetch(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, interfaces.ErrContentNotFound
		}
		return nil, fmt.Errorf("failed to read trust config: %w", err)
	}

	s.log.Debug("Read trust config from file", slog.String("path", s.path), slog.Int("size", len(data)))
	return data, nil
}

// Store writes data with owner-only permissions, creating parent directories.
// The file holds a private key.
func (s *FileSource) Store(ctx context.Context, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write trust config: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("failed to move trust config into place: %w", err)
	}
	return s.locationURI, nil
}

// Available reports whether the parent directory exists.
func (s *FileSource) Available(ctx context.Context) bool {
	info, err := os.Stat(filepath.Dir(s.path))
	return err == nil && info.IsDir()
}

func (s *FileSource) Name() string {
	return "file-" + filepath.Base(s.path)
}

func (s *FileSource) LocationURI() string {
	return s.locationURI
}
