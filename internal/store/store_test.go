package store

import (
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set(KeyMode, []byte("advanced")); err != nil {
		t.Fatalf("set: %v", err)
	}

	v, ok, err := s.Get(KeyMode)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatal("expected key to exist")
	}
	if string(v) != "advanced" {
		t.Fatalf("expected %q, got %q", "advanced", v)
	}
}

func TestGetMissingKey(t *testing.T) {
	s := newTestStore(t)

	_, ok, err := s.Get("no-such-key")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected missing key")
	}
}

func TestSetOverwrites(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set(KeyMode, []byte("standard")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Set(KeyMode, []byte("research")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	v, _, err := s.Get(KeyMode)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(v) != "research" {
		t.Fatalf("expected %q, got %q", "research", v)
	}
}

func TestGetManySkipsMissing(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set(KeySettings, []byte(`{}`)); err != nil {
		t.Fatalf("set: %v", err)
	}

	got, err := s.GetMany([]string{KeySettings, KeyMode, KeyTermsAccepted})
	if err != nil {
		t.Fatalf("getmany: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 present key, got %d", len(got))
	}
	if _, ok := got[KeySettings]; !ok {
		t.Fatal("expected settings key present")
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Set(KeyTermsAccepted, []byte("true")); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.Delete(KeyTermsAccepted); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(KeyTermsAccepted); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	_, ok, err := s.Get(KeyTermsAccepted)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatal("expected key deleted")
	}
}
