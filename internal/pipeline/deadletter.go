package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DeadLetter is one failed unit of work, recorded with enough context to
// diagnose it after the run.
type DeadLetter struct {
	UnitID  string    `json:"unit_id"`
	URL     string    `json:"url"`
	Keyword string    `json:"keyword,omitempty"`
	Stage   string    `json:"stage"`
	Kind    string    `json:"kind"`
	Error   string    `json:"error"`
	At      time.Time `json:"at"`
}

// DeadLetterSink appends failed units to a JSON-lines file.
type DeadLetterSink struct {
	mu     sync.Mutex
	file   *os.File
	logger *zap.Logger
}

// NewDeadLetterSink opens (creating directories as needed) the sink file
// in append mode.
func NewDeadLetterSink(path string, logger *zap.Logger) (*DeadLetterSink, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create dead-letter dir for %s: %w", path, err)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open dead-letter file %s: %w", path, err)
	}
	return &DeadLetterSink{file: f, logger: logger}, nil
}

// Write appends one entry.
func (s *DeadLetterSink) Write(entry DeadLetter) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal dead letter: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.file.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write dead letter: %w", err)
	}
	return nil
}

// Close flushes and closes the sink file.
func (s *DeadLetterSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close dead-letter file: %w", err)
	}
	return nil
}
