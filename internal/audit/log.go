package audit

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GenesisHash is the prev_hash for the first entry in a new audit log.
const GenesisHash = "sha256:0000000000000000000000000000000000000000000000000000000000000000"

// ExportFormat marks exported audit sequences.
const ExportFormat = "actguard-audit-v1"

// Log is an append-only JSONL audit log with SHA-256 hash chaining. Each
// entry's prev_hash is the hash of the previous entry's JSON line, forming a
// tamper-evident chain. There is no API to remove or reorder individual
// events; Clear wipes the whole sequence or nothing.
type Log struct {
	path     string
	file     *os.File
	prevHash string
	enabled  bool
	mu       sync.Mutex
}

// Open opens (or creates) an audit log file for appending. If the file
// already exists, it reads the last line to recover the chain tail.
func Open(path string) (*Log, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("audit: create directory: %w", err)
	}

	prevHash := GenesisHash

	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("audit: read existing log: %w", err)
		}
		scanner := bufio.NewScanner(f)
		var lastLine []byte
		for scanner.Scan() {
			lastLine = make([]byte, len(scanner.Bytes()))
			copy(lastLine, scanner.Bytes())
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("audit: scan existing log: %w", err)
		}
		if len(lastLine) > 0 {
			prevHash = HashLine(lastLine)
		}
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("audit: open file: %w", err)
	}

	return &Log{
		path:     path,
		file:     file,
		prevHash: prevHash,
		enabled:  true,
	}, nil
}

// SetEnabled toggles recording. While disabled, Record is a documented no-op
// that never fails; the existing sequence is left untouched.
func (l *Log) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Enabled reports whether recording is active.
func (l *Log) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// Record appends an Event to the log with hash chaining. It assigns the ID
// and Timestamp if empty, sets PrevHash, writes the line, and syncs to disk
// before returning so the caller knows the event is durably recorded.
func (l *Log) Record(event Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(TimestampFormat)
	}
	event.PrevHash = l.prevHash

	line, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("audit: marshal event: %w", err)
	}

	if _, err := l.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("audit: write event: %w", err)
	}

	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = HashLine(line)
	return nil
}

// Export holds the full audit sequence with a format marker.
type Export struct {
	Format     string  `json:"format"`
	ExportedAt string  `json:"exported_at"`
	Events     []Event `json:"events"`
}

// Export returns every event in append order.
func (l *Log) Export() (*Export, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := readAll(l.path)
	if err != nil {
		return nil, err
	}

	return &Export{
		Format:     ExportFormat,
		ExportedAt: time.Now().UTC().Format(TimestampFormat),
		Events:     events,
	}, nil
}

// Len returns the number of recorded events.
func (l *Log) Len() (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	events, err := readAll(l.path)
	if err != nil {
		return 0, err
	}
	return len(events), nil
}

// Clear wipes the entire sequence and its persisted file, but only when the
// caller explicitly confirms. Without confirmation it is a no-op leaving the
// log unchanged. Partial deletion does not exist.
func (l *Log) Clear(confirmed bool) error {
	if !confirmed {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.file.Truncate(0); err != nil {
		return fmt.Errorf("audit: truncate: %w", err)
	}
	if _, err := l.file.Seek(0, 0); err != nil {
		return fmt.Errorf("audit: seek: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("audit: sync: %w", err)
	}

	l.prevHash = GenesisHash
	return nil
}

// Close flushes and closes the underlying file.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.file.Close()
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// readAll parses every event line in the file.
func readAll(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("audit: open: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("audit: parse line %d: %w", len(events)+1, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("audit: scan: %w", err)
	}
	return events, nil
}

// Tail returns the last n events in the log.
func Tail(path string, n int) ([]Event, error) {
	events, err := readAll(path)
	if err != nil {
		return nil, err
	}
	if n > 0 && len(events) > n {
		events = events[len(events)-n:]
	}
	return events, nil
}

// HashLine returns "sha256:<hex>" of the given bytes.
func HashLine(line []byte) string {
	h := sha256.Sum256(line)
	return "sha256:" + hex.EncodeToString(h[:])
}
