// Package logger appends one JSON line per gate decision to an audit file.
// Command text is redacted before it touches disk.
package logger

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/gzhole/cmdgate/internal/redact"
)

// AuditEvent is one recorded decision.
type AuditEvent struct {
	Timestamp       string   `json:"timestamp"`
	Command         string   `json:"command"`
	Allowed         bool     `json:"allowed"`
	Reason          string   `json:"reason"`
	MatchedPatterns []string `json:"matched_patterns,omitempty"`
	SkillOrigin     bool     `json:"skill_origin,omitempty"`
	UserAction      string   `json:"user_action,omitempty"`
}

type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

func New(path string) (*AuditLogger, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, err
	}
	return &AuditLogger{file: file}, nil
}

// Log appends event as one JSON line. Writers are serialized; a missing
// timestamp is filled in.
func (l *AuditLogger) Log(event AuditEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	event.Command = redact.Redact(event.Command)
	event.Reason = redact.Redact(event.Reason)

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = l.file.Write(data)
	return err
}

func (l *AuditLogger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}
