package modestate

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/okume/actguard/internal/model"
	"github.com/okume/actguard/internal/store"
)

func TestTransitionRequiresJustification(t *testing.T) {
	m := New(model.ModeStandard, nil)

	for _, justification := range []string{"", "   ", "\t\n"} {
		_, err := m.Transition(model.ModeAdvanced, justification)
		if !errors.Is(err, ErrJustificationRequired) {
			t.Fatalf("justification %q: expected ErrJustificationRequired, got %v", justification, err)
		}
		if m.Current() != model.ModeStandard {
			t.Fatalf("mode changed despite rejected transition: %s", m.Current())
		}
	}
}

func TestTransitionRejectsUnknownMode(t *testing.T) {
	m := New(model.ModeStandard, nil)

	_, err := m.Transition(model.Mode("root"), "testing")
	var invalid *model.InvalidModeError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidModeError, got %v", err)
	}
	if m.Current() != model.ModeStandard {
		t.Fatalf("mode changed despite invalid target: %s", m.Current())
	}
}

func TestTransitionBothDirections(t *testing.T) {
	m := New(model.ModeStandard, nil)

	from, err := m.Transition(model.ModeResearch, "protocol testing")
	if err != nil {
		t.Fatalf("promote: %v", err)
	}
	if from != model.ModeStandard || m.Current() != model.ModeResearch {
		t.Fatalf("expected standard->research, got %s->%s", from, m.Current())
	}

	from, err = m.Transition(model.ModeStandard, "done testing")
	if err != nil {
		t.Fatalf("demote: %v", err)
	}
	if from != model.ModeResearch || m.Current() != model.ModeStandard {
		t.Fatalf("expected research->standard, got %s->%s", from, m.Current())
	}
}

func TestTransitionPersistsMode(t *testing.T) {
	kv, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	m, err := Load(kv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Current() != model.ModeStandard {
		t.Fatalf("fresh store should start standard, got %s", m.Current())
	}

	if _, err := m.Transition(model.ModeAdvanced, "enable assisted flows"); err != nil {
		t.Fatalf("transition: %v", err)
	}

	reloaded, err := Load(kv)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Current() != model.ModeAdvanced {
		t.Fatalf("expected persisted mode advanced, got %s", reloaded.Current())
	}
}

func TestLoadIgnoresCorruptMode(t *testing.T) {
	kv, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	if err := kv.Set(store.KeyMode, []byte("sudo")); err != nil {
		t.Fatalf("seed: %v", err)
	}

	m, err := Load(kv)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Current() != model.ModeStandard {
		t.Fatalf("corrupt persisted mode should fall back to standard, got %s", m.Current())
	}
}
