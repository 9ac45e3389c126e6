package telegram

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/renameio/v2"
)

// OffsetStore persists the getUpdates cursor across restarts so a crash
// does not replay already-handled updates. Writes go through an atomic
// rename, never a partial file.
type OffsetStore struct {
	path string
}

// NewOffsetStore uses the given file path; the file may not exist yet.
func NewOffsetStore(path string) *OffsetStore {
	return &OffsetStore{path: path}
}

// Load returns the saved offset, or 0 when nothing was persisted yet.
func (s *OffsetStore) Load() (int64, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("telegram: read offset: %w", err)
	}
	offset, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram: parse offset %q: %w", string(data), err)
	}
	return offset, nil
}

// Save persists the offset atomically.
func (s *OffsetStore) Save(offset int64) error {
	data := []byte(strconv.FormatInt(offset, 10) + "\n")
	if err := renameio.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("telegram: save offset: %w", err)
	}
	return nil
}
