package events

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const (
	// DefaultRetentionDays is the number of days to retain log entries.
	DefaultRetentionDays = 30

	// RotationCheckInterval is how often to check for rotation (in events).
	RotationCheckInterval = 100
)

// Sink receives events. *Logger and Discard implement it.
type Sink interface {
	Log(event *Event) error
}

type discard struct{}

func (discard) Log(*Event) error { return nil }

// Discard drops every event.
var Discard Sink = discard{}

// Logger appends events to a JSONL file. Several bdesk processes may share
// one file; appends are serialised with an advisory lock on path + ".lock".
type Logger struct {
	path          string
	retentionDays int

	mu           sync.Mutex
	lock         *flock.Flock
	eventCount   int
	lastRotation time.Time
}

// LoggerOptions configures the event logger.
type LoggerOptions struct {
	Path          string
	RetentionDays int
}

// NewLogger creates the log directory and returns a Logger for opts.Path.
func NewLogger(opts LoggerOptions) (*Logger, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("event log path is required")
	}
	if opts.RetentionDays <= 0 {
		opts.RetentionDays = DefaultRetentionDays
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}
	return &Logger{
		path:          opts.Path,
		retentionDays: opts.RetentionDays,
		lock:          flock.New(opts.Path + ".lock"),
		lastRotation:  time.Now(),
	}, nil
}

// Path returns the log file path.
func (l *Logger) Path() string { return l.path }

// Log writes an event to the log file.
func (l *Logger) Log(event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.lock.Lock(); err != nil {
		return fmt.Errorf("locking event log: %w", err)
	}
	defer l.lock.Unlock()

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return fmt.Errorf("writing event: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing log file: %w", err)
	}

	l.eventCount++
	if l.eventCount%RotationCheckInterval == 0 && time.Since(l.lastRotation) >= 24*time.Hour {
		l.lastRotation = time.Now()
		if err := l.rotateOldEntries(); err != nil {
			return fmt.Errorf("rotating event log: %w", err)
		}
	}
	return nil
}

// rotateOldEntries drops entries older than the retention period. The caller
// holds both locks.
func (l *Logger) rotateOldEntries() error {
	src, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(l.path), "events-rotate-*.jsonl")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	cutoff := time.Now().AddDate(0, 0, -l.retentionDays)
	w := bufio.NewWriter(tmp)
	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var head struct {
			Timestamp time.Time `json:"timestamp"`
		}
		// Malformed entries are kept.
		if json.Unmarshal(line, &head) == nil && !head.Timestamp.After(cutoff) {
			continue
		}
		w.Write(line)
		w.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		tmp.Close()
		return fmt.Errorf("scanning log file: %w", err)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmpPath, l.path)
}

// ReadAll decodes every well-formed event in the log at path.
func ReadAll(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, scanner.Err()
}
