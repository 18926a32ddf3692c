// Package audit writes an NDJSON log of interview turns for offline review.
// The in-memory transcript itself is never persisted; this log is an
// operational trace, written asynchronously so it cannot stall a session.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config controls transcript audit logging.
type Config struct {
	Enabled   bool
	Dir       string
	QueueSize int
}

// Event is one logged turn.
type Event struct {
	Timestamp string `json:"ts"`
	SessionID string `json:"session_id"`
	VacancyID int64  `json:"vacancy_id"`
	ResumeID  int64  `json:"resume_id"`
	Direction string `json:"direction"` // "inbound" or "outbound"
	EventType string `json:"event_type"`
	Text      string `json:"text"`
	Final     bool   `json:"final,omitempty"`
}

// Logger appends events to one NDJSON file per session under Dir.
type Logger struct {
	cfg    Config
	log    *slog.Logger
	queue  chan Event
	done   chan struct{}
	closed sync.Once
}

// New creates a Logger. When cfg.Enabled is false the returned logger
// discards everything.
func New(cfg Config, log *slog.Logger) (*Logger, error) {
	if log == nil {
		log = slog.Default()
	}
	l := &Logger{cfg: cfg, log: log, done: make(chan struct{})}

	if !cfg.Enabled {
		return l, nil
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("audit log dir is required when enabled")
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("create audit log dir: %w", err)
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = 1000
	}
	l.queue = make(chan Event, size)
	go l.run()

	return l, nil
}

// Log enqueues an event. Never blocks; when the queue is full the event is
// dropped with a warning.
func (l *Logger) Log(event Event) {
	if l == nil || l.queue == nil {
		return
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	select {
	case l.queue <- event:
	default:
		l.log.Warn("audit log queue full, dropping event",
			"session_id", event.SessionID,
			"event_type", event.EventType)
	}
}

// Close stops the writer after draining queued events.
func (l *Logger) Close() error {
	if l == nil || l.queue == nil {
		return nil
	}
	l.closed.Do(func() {
		close(l.queue)
		<-l.done
	})
	return nil
}

func (l *Logger) run() {
	defer close(l.done)
	for event := range l.queue {
		l.write(event)
	}
}

func (l *Logger) write(event Event) {
	line, err := json.Marshal(event)
	if err != nil {
		l.log.Warn("failed to marshal audit event", "error", err)
		return
	}

	path := filepath.Join(l.cfg.Dir, event.SessionID+".ndjson")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		l.log.Warn("failed to open audit log file", "path", path, "error", err)
		return
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.log.Warn("failed to close audit log file", "path", path, "error", closeErr)
		}
	}()

	if _, err := f.Write(append(line, '\n')); err != nil {
		l.log.Warn("failed to write audit event", "path", path, "error", err)
	}
}
