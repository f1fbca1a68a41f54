package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/JorritSalverda/jarvis-tesla-exporter/internal/measurement"
	"github.com/sirupsen/logrus"
)

// Store keeps the most recent measurements so the next reconciliation cycle
// can carry counters forward. The exporter core only ever reads prior
// measurements; it never mutates what a store hands out.
type Store interface {
	Last(ctx context.Context) ([]measurement.Measurement, error)
	Save(ctx context.Context, measurements []measurement.Measurement) error
}

// MemoryStore keeps the last measurements in memory. Carried-forward counters
// restart from zero when the process restarts.
type MemoryStore struct {
	mu   sync.RWMutex
	last []measurement.Measurement
}

func NewMemoryStore() *MemoryStore { return &MemoryStore{} }

func (s *MemoryStore) Last(_ context.Context) ([]measurement.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.last == nil {
		return nil, nil
	}
	out := make([]measurement.Measurement, len(s.last))
	copy(out, s.last)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, measurements []measurement.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = make([]measurement.Measurement, len(measurements))
	copy(s.last, measurements)
	return nil
}

// FileStore persists the last measurements as JSON so counters survive a
// restart. Writes go through a temp file and rename to avoid a torn state
// file on crash.
type FileStore struct {
	mu     sync.Mutex
	path   string
	logger *logrus.Logger
}

func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

func (s *FileStore) Last(_ context.Context) ([]measurement.Measurement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("path", s.path).Debug("No state file yet")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read state file %s: %w", s.path, err)
	}

	var measurements []measurement.Measurement
	if err := json.Unmarshal(data, &measurements); err != nil {
		return nil, fmt.Errorf("failed to parse state file %s: %w", s.path, err)
	}
	return measurements, nil
}

func (s *FileStore) Save(_ context.Context, measurements []measurement.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(measurements, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":         s.path,
		"measurements": len(measurements),
	}).Debug("Saved state")
	return nil
}
