// Package vault stores site credentials encrypted at rest. Plaintext never
// reaches the key-value store; the consent check guarding writes lives with
// the dispatcher, before the gate.
package vault

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/okume/actguard/internal/store"
)

// Record is one encrypted credential entry.
type Record struct {
	SiteKey    string `json:"site_key"`
	Ciphertext string `json:"ciphertext"` // base64, nonce-prefixed
	StoredAt   string `json:"stored_at"`
	Method     string `json:"method"`
}

// Vault maps site keys to encrypted credential records, persisted in the
// key-value store under a single flat key.
type Vault struct {
	kv     *store.Store
	cipher Cipher
}

// New creates a vault over the given store and cipher.
func New(kv *store.Store, cipher Cipher) *Vault {
	return &Vault{kv: kv, cipher: cipher}
}

// Put encrypts and stores a credential for a site, replacing any previous
// record. Durable when the call returns.
func (v *Vault) Put(site string, secret []byte) (Record, error) {
	if site == "" {
		return Record{}, fmt.Errorf("vault: site key must not be empty")
	}

	ciphertext, err := v.cipher.Encrypt(secret)
	if err != nil {
		return Record{}, err
	}

	rec := Record{
		SiteKey:    site,
		Ciphertext: base64.StdEncoding.EncodeToString(ciphertext),
		StoredAt:   time.Now().UTC().Format(time.RFC3339),
		Method:     v.cipher.Method(),
	}

	records, err := v.load()
	if err != nil {
		return Record{}, err
	}
	records[site] = rec

	if err := v.save(records); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Get decrypts the credential stored for a site.
func (v *Vault) Get(site string) ([]byte, error) {
	records, err := v.load()
	if err != nil {
		return nil, err
	}

	rec, ok := records[site]
	if !ok {
		return nil, fmt.Errorf("vault: no credential stored for %q", site)
	}

	ciphertext, err := base64.StdEncoding.DecodeString(rec.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("vault: decode record: %w", err)
	}
	return v.cipher.Decrypt(ciphertext)
}

// Sites lists the site keys with stored credentials, sorted.
func (v *Vault) Sites() ([]string, error) {
	records, err := v.load()
	if err != nil {
		return nil, err
	}
	sites := make([]string, 0, len(records))
	for site := range records {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	return sites, nil
}

func (v *Vault) load() (map[string]Record, error) {
	raw, ok, err := v.kv.Get(store.KeyCredentials)
	if err != nil {
		return nil, err
	}
	records := make(map[string]Record)
	if ok {
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("vault: parse credential map: %w", err)
		}
	}
	return records, nil
}

func (v *Vault) save(records map[string]Record) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("vault: marshal credential map: %w", err)
	}
	return v.kv.Set(store.KeyCredentials, data)
}
