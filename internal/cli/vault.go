package cli

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"github.com/okume/actguard/internal/store"
	"github.com/okume/actguard/internal/vault"
)

// passphraseEnv supplies the vault passphrase. An unset variable leaves the
// credential actions unavailable; everything else still works.
const passphraseEnv = "ACTGUARD_PASSPHRASE"

// openVault derives the vault key from the passphrase env var and a salt
// file beside the state database. No passphrase, no vault.
func openVault(kv *store.Store) (*vault.Vault, error) {
	passphrase := os.Getenv(passphraseEnv)
	if passphrase == "" {
		return nil, nil
	}

	salt, err := loadOrCreateSalt(filepath.Join(configDir(), "vault.salt"))
	if err != nil {
		return nil, fmt.Errorf("vault salt: %w", err)
	}

	key, err := vault.DeriveKey([]byte(passphrase), salt)
	if err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}
	cipher, err := vault.NewChaChaCipher(key)
	if err != nil {
		return nil, err
	}
	return vault.New(kv, cipher), nil
}

func loadOrCreateSalt(path string) ([]byte, error) {
	salt, err := os.ReadFile(path)
	if err == nil && len(salt) == 16 {
		return salt, nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	salt = make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, salt, 0o600); err != nil {
		return nil, err
	}
	return salt, nil
}
