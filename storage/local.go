package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
)

var keyRegex = regexp.MustCompile(`^[A-Za-z0-9_\-]+$`)

// Key maps a state key to an object name.
// Returns "" for keys that are not safe to use as a file or object name.
func Key(key string) string {
	if !keyRegex.MatchString(key) {
		return ""
	}
	return fmt.Sprintf("state-%s.json", key)
}

// Local stores values as files in a directory, for local development.
type Local struct {
	logger *slog.Logger
	path   string
}

// NewLocal creates a store rooted at path, creating the directory if needed.
func NewLocal(path string, logger *slog.Logger) (*Local, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create local storage directory: %w", err)
	}
	return &Local{path: path, logger: logger}, nil
}

// Get reads the value stored under key.
func (l *Local) Get(_ context.Context, key string) ([]byte, error) {
	name := Key(key)
	if name == "" {
		return nil, errors.New("invalid key format")
	}

	filePath := filepath.Join(l.path, name)
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read from local storage: %w", err)
	}
	return data, nil
}

// Put atomically replaces the value stored under key.
func (l *Local) Put(_ context.Context, key string, value []byte) error {
	name := Key(key)
	if name == "" {
		return errors.New("invalid key format")
	}

	filePath := filepath.Join(l.path, name)
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, value, 0o600); err != nil {
		return fmt.Errorf("write to local storage: %w", err)
	}
	if err := os.Rename(tmp, filePath); err != nil {
		return fmt.Errorf("replace local storage file: %w", err)
	}

	l.logger.Info("State saved to local storage", "path", filePath, "bytes", len(value))
	return nil
}
