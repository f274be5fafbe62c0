package vault

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okume/actguard/internal/store"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, 32)
}

func newTestVault(t *testing.T) (*Vault, *store.Store) {
	t.Helper()
	kv, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { kv.Close() })

	cipher, err := NewChaChaCipher(testKey())
	if err != nil {
		t.Fatalf("cipher: %v", err)
	}
	return New(kv, cipher), kv
}

func TestPutGetRoundTrip(t *testing.T) {
	v, _ := newTestVault(t)

	secret := []byte(`{"user":"anna","password":"hunter2"}`)
	rec, err := v.Put("example.org", secret)
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if rec.Method != "xchacha20poly1305" {
		t.Fatalf("unexpected method %q", rec.Method)
	}
	if rec.StoredAt == "" {
		t.Fatal("record missing stored-at timestamp")
	}

	got, err := v.Get("example.org")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, secret) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestPlaintextNeverPersisted(t *testing.T) {
	v, kv := newTestVault(t)

	secret := []byte("password=swordfish-opensesame")
	if _, err := v.Put("bank.example", secret); err != nil {
		t.Fatalf("put: %v", err)
	}

	raw, ok, err := kv.Get(store.KeyCredentials)
	if err != nil || !ok {
		t.Fatalf("read persisted credentials: %v", err)
	}
	if bytes.Contains(raw, []byte("swordfish")) {
		t.Fatal("plaintext found in persisted credential map")
	}
	if !strings.Contains(string(raw), "xchacha20poly1305") {
		t.Fatalf("persisted record missing method marker: %s", raw)
	}
}

func TestGetUnknownSite(t *testing.T) {
	v, _ := newTestVault(t)

	if _, err := v.Get("nowhere.example"); err == nil {
		t.Fatal("expected error for unknown site")
	}
}

func TestWrongKeyFailsDecrypt(t *testing.T) {
	kv, err := store.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer kv.Close()

	c1, _ := NewChaChaCipher(testKey())
	if _, err := New(kv, c1).Put("site", []byte("secret")); err != nil {
		t.Fatalf("put: %v", err)
	}

	c2, _ := NewChaChaCipher(bytes.Repeat([]byte{0x13}, 32))
	if _, err := New(kv, c2).Get("site"); err == nil {
		t.Fatal("expected decrypt failure with wrong key")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	k1, err := DeriveKey([]byte("passphrase"), []byte("salt-1"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	k2, err := DeriveKey([]byte("passphrase"), []byte("salt-1"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Fatal("same passphrase and salt must derive the same key")
	}

	k3, err := DeriveKey([]byte("passphrase"), []byte("salt-2"))
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if bytes.Equal(k1, k3) {
		t.Fatal("different salts must derive different keys")
	}
	if len(k1) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(k1))
	}
}

func TestSitesSorted(t *testing.T) {
	v, _ := newTestVault(t)

	for _, site := range []string{"zeta.example", "alpha.example", "mid.example"} {
		if _, err := v.Put(site, []byte("x")); err != nil {
			t.Fatalf("put %s: %v", site, err)
		}
	}

	sites, err := v.Sites()
	if err != nil {
		t.Fatalf("sites: %v", err)
	}
	want := []string{"alpha.example", "mid.example", "zeta.example"}
	if len(sites) != len(want) {
		t.Fatalf("expected %d sites, got %d", len(want), len(sites))
	}
	for i := range want {
		if sites[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, sites)
		}
	}
}
