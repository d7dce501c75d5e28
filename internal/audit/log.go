package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
)

// Logger accepts finished records. Failure to write must not fail the
// originating operation: callers treat a non-nil error as something to
// log, not propagate.
type Logger interface {
	Append(r Record) error
	Close() error
	Path() string
}

// FileLogger appends one JSON object per line to a file opened in
// append mode, flushing on every write.
type FileLogger struct {
	mu   sync.Mutex
	file *os.File
	path string
}

// NewFileLogger opens (creating if necessary) the JSONL file at path for
// append-only writes.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("audit: open log %s: %w", path, err)
	}
	return &FileLogger{file: f, path: path}, nil
}

// Append writes one JSON line and flushes it to disk before returning.
func (l *FileLogger) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("audit: marshal record: %w", err)
	}
	line = append(line, '\n')

	w := bufio.NewWriter(l.file)
	if _, err := w.Write(line); err != nil {
		return fmt.Errorf("audit: write record: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("audit: flush record: %w", err)
	}
	return l.file.Sync()
}

// Close flushes and closes the underlying file.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the file path this logger writes to.
func (l *FileLogger) Path() string {
	return l.path
}

// NopLogger discards every record; useful for tests that don't care
// about the audit side-effect.
type NopLogger struct{}

func (NopLogger) Append(Record) error { return nil }
func (NopLogger) Close() error        { return nil }
func (NopLogger) Path() string        { return "" }
