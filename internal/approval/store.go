// Package approval is the file-backed pending-confirmation store. A deferred
// assisted action parks here until an operator approves or denies it from the
// CLI or the MCP surface.
package approval

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

// validKey matches alphanumeric, dash, underscore, and dot characters only.
var validKey = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// validateKey rejects keys that could cause path traversal.
func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("key must not be empty")
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("key must not contain '..'")
	}
	if !validKey.MatchString(key) {
		return fmt.Errorf("key contains invalid characters: only alphanumeric, dash, underscore, and dot are allowed")
	}
	return nil
}

// Status represents the state of a pending confirmation.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusDenied   Status = "denied"
	StatusExpired  Status = "expired"
)

// Pending represents a single confirmation request and its state.
type Pending struct {
	Key        string     `json:"key"`
	Action     string     `json:"action"`
	Message    string     `json:"message"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
	Status     Status     `json:"status"`
}

// Store manages pending-confirmation files on disk.
type Store struct {
	dir string
	mu  sync.Mutex
}

// NewStore creates a Store backed by the given directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create approval directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// DefaultDir returns the default pending-confirmation directory.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "actguard-pending")
	}
	return filepath.Join(home, ".actguard", "pending")
}

// Request files a pending confirmation. No-op if the key already exists, so
// repeated identical requests do not reset the clock. A zero ttl means the
// request never expires on its own.
func (s *Store) Request(key, action, message string, ttl time.Duration) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.path(key)
	if _, err := os.Stat(path); err == nil {
		return nil // already filed
	}

	p := Pending{
		Key:       key,
		Action:    action,
		Message:   message,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}
	if ttl > 0 {
		exp := p.CreatedAt.Add(ttl)
		p.ExpiresAt = &exp
	}

	return s.writeAtomic(path, p)
}

// Approve resolves a pending confirmation as approved.
func (s *Store) Approve(key string) error {
	return s.resolve(key, StatusApproved)
}

// Deny resolves a pending confirmation as denied.
func (s *Store) Deny(key string) error {
	return s.resolve(key, StatusDenied)
}

func (s *Store) resolve(key string, status Status) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read(key)
	if err != nil {
		return fmt.Errorf("approval %q not found: %w", key, err)
	}

	p.Status = status
	now := time.Now().UTC()
	p.ResolvedAt = &now

	return s.writeAtomic(s.path(key), *p)
}

// Check returns the current status of a confirmation. A pending request past
// its deadline reports (and is persisted) as expired.
func (s *Store) Check(key string) (Status, error) {
	if err := validateKey(key); err != nil {
		return "", fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.read(key)
	if err != nil {
		return "", fmt.Errorf("approval %q not found", key)
	}

	if p.Status == StatusPending && p.ExpiresAt != nil && time.Now().UTC().After(*p.ExpiresAt) {
		p.Status = StatusExpired
		s.writeAtomic(s.path(key), *p)
		return StatusExpired, nil
	}

	return p.Status, nil
}

// Remove deletes a resolved confirmation file.
func (s *Store) Remove(key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("invalid approval key: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// List returns all confirmations in the store.
func (s *Store) List() ([]Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var pending []Pending
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		key := strings.TrimSuffix(e.Name(), ".json")
		p, err := s.read(key)
		if err != nil {
			continue
		}
		pending = append(pending, *p)
	}

	return pending, nil
}

// Cleanup removes all confirmation files in the store.
func (s *Store) Cleanup() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) read(key string) (*Pending, error) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return nil, err
	}

	var p Pending
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	return &p, nil
}

func (s *Store) writeAtomic(path string, p Pending) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
