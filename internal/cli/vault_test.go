package cli

import (
	"bytes"
	"path/filepath"
	"testing"
)

func TestLoadOrCreateSalt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "vault.salt")

	first, err := loadOrCreateSalt(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(first) != 16 {
		t.Fatalf("salt length = %d, want 16", len(first))
	}

	second, err := loadOrCreateSalt(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("salt not stable across loads")
	}
}
