// =============================================================================
// Excel to EDI Generator - Audit Log
// =============================================================================
//
// The audit log records what each identity did, one JSON object per line,
// in one append-only file per identity:
//
//   <audit_dir>/buyer_example_com_session.log
//   {"id":"...","timestamp":"...","user":"buyer@example.com","action":"EDI_GENERATED","details":{...}}
//
// Reading back is bounded: Recent returns only the last N entries.
//
// =============================================================================

package audit

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Actions recorded by the command line tool.
const (
	ActionInputLoaded       = "INPUT_LOADED"
	ActionProcessingStarted = "PROCESSING_STARTED"
	ActionEDIGenerated      = "EDI_GENERATED"
	ActionError             = "ERROR"
	ActionDocumentRead      = "DOCUMENT_READ"
)

// DefaultReadLimit is the number of entries Recent returns when asked for
// zero or fewer.
const DefaultReadLimit = 50

// Entry is one audit event.
type Entry struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details"`
}

// Log is an append-only audit log rooted at a directory.
type Log struct {
	dir string
	now func() time.Time

	mu sync.Mutex
}

// New creates a log writing under dir.
func New(dir string) *Log {
	return &Log{dir: dir, now: time.Now}
}

// Record appends an event for identity.
func (l *Log) Record(identity, action string, details map[string]any) (Entry, error) {
	if details == nil {
		details = map[string]any{}
	}
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		User:      identity,
		Action:    action,
		Details:   details,
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to encode audit entry: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return Entry{}, fmt.Errorf("failed to create audit directory: %w", err)
	}
	f, err := os.OpenFile(l.path(identity), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("failed to write audit entry: %w", err)
	}
	return entry, nil
}

// Recent returns the last n entries of identity, oldest first. Lines that
// cannot be decoded are skipped.
func (l *Log) Recent(identity string, n int) ([]Entry, error) {
	if n <= 0 {
		n = DefaultReadLimit
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.Open(l.path(identity))
	if errors.Is(err, os.ErrNotExist) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	// Ring buffer of the last n entries.
	ring := make([]Entry, 0, n)
	start := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Entry
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		if len(ring) < n {
			ring = append(ring, e)
			continue
		}
		ring[start] = e
		start = (start + 1) % n
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	return append(ring[start:], ring[:start]...), nil
}

func (l *Log) path(identity string) string {
	return filepath.Join(l.dir, SanitizeIdentity(identity)+"_session.log")
}

// SanitizeIdentity turns an identity into a file name stem:
// "buyer@example.com" becomes "buyer_example_com".
func SanitizeIdentity(identity string) string {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "anonymous"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, identity)
}
