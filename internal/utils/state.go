// internal/utils/state.go
package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// DefaultStatePath is name inside the per-user fanctl config directory.
func DefaultStatePath(name string) (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}
	return filepath.Join(dir, "fanctl", name), nil
}

// ReadStateFile returns the trimmed content of path, or "" if it does not exist.
func ReadStateFile(path string) (string, error) {
	content, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read state file '%s': %w", path, err)
	}
	return strings.TrimSpace(string(content)), nil
}

// WriteStateFile stores value readable by the current user only. An empty
// value removes the file.
func WriteStateFile(path, value string) error {
	if value == "" {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to remove state file '%s': %w", path, err)
		}
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create state directory for '%s': %w", path, err)
	}
	if err := os.WriteFile(path, []byte(value+"\n"), 0o600); err != nil {
		return fmt.Errorf("failed to write state file '%s': %w", path, err)
	}
	return nil
}

// LoadOrCreateClientID returns the installation id stored at path, creating
// one on first use. It must stay stable so retried payments reuse their
// idempotency keys.
func LoadOrCreateClientID(path string) (string, error) {
	id, err := ReadStateFile(path)
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := WriteStateFile(path, id); err != nil {
		return "", err
	}
	return id, nil
}
