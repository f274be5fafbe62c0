// Package modestate is the privilege mode state machine. Transitions move in
// either direction but are always caller-initiated and must carry a
// justification; there is no automatic or time-based promotion.
package modestate

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/store"
)

// ErrJustificationRequired rejects transition requests with an empty or
// whitespace-only justification.
var ErrJustificationRequired = errors.New("mode transition requires a non-empty justification")

// Machine tracks the current privilege tier.
type Machine struct {
	mu      sync.Mutex
	current model.Mode
	kv      *store.Store
}

// New creates a machine starting in the given mode. A nil store disables
// persistence (tests).
func New(current model.Mode, kv *store.Store) *Machine {
	return &Machine{current: current, kv: kv}
}

// Load restores the persisted mode, falling back to standard when nothing is
// stored or the stored value is unrecognized.
func Load(kv *store.Store) (*Machine, error) {
	raw, ok, err := kv.Get(store.KeyMode)
	if err != nil {
		return nil, fmt.Errorf("modestate: load: %w", err)
	}

	mode := model.ModeStandard
	if ok {
		if parsed, err := model.ParseMode(string(raw)); err == nil {
			mode = parsed
		}
	}
	return &Machine{current: mode, kv: kv}, nil
}

// Current returns the active mode.
func (m *Machine) Current() model.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Transition moves to the target mode. An empty justification or an unknown
// target is rejected with no state change. On success the new mode is
// persisted before the call returns. Audit recording lives with the
// dispatcher so each request yields exactly one event.
func (m *Machine) Transition(to model.Mode, justification string) (model.Mode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	from := m.current

	if strings.TrimSpace(justification) == "" {
		return from, ErrJustificationRequired
	}
	if _, err := model.ParseMode(string(to)); err != nil {
		return from, err
	}

	m.current = to
	if m.kv != nil {
		if err := m.kv.Set(store.KeyMode, []byte(to)); err != nil {
			// Keep the in-memory transition; persistence is
			// at-least-attempted, not exactly-once.
			return from, fmt.Errorf("modestate: persist: %w", err)
		}
	}
	return from, nil
}
