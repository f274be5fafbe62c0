package confirm

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/okume/actguard/internal/approval"
)

// PollInterval is how often the store confirmer re-checks a pending key.
const PollInterval = 250 * time.Millisecond

// StoreConfirmer parks prompts in the file-backed approval store and waits
// for an operator to resolve them via `actguard approve` / `actguard deny`
// or the MCP tools.
type StoreConfirmer struct {
	Store *approval.Store
	// TTL bounds how long an unresolved prompt stays actionable. Zero
	// keeps the store default (no expiry; the ctx deadline still applies).
	TTL time.Duration
}

// Present files the prompt and polls until it is approved, denied, expired,
// or the context ends.
func (s *StoreConfirmer) Present(ctx context.Context, p Prompt) (Choice, error) {
	key := fmt.Sprintf("%s-%s", p.Action, randomSuffix())
	if err := s.Store.Request(key, p.Action, p.Message, s.TTL); err != nil {
		return Declined, fmt.Errorf("confirm: file pending request: %w", err)
	}
	defer s.Store.Remove(key)

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return Declined, ctx.Err()
		case <-ticker.C:
			status, err := s.Store.Check(key)
			if err != nil {
				return Declined, fmt.Errorf("confirm: check pending request: %w", err)
			}
			switch status {
			case approval.StatusApproved:
				return Confirmed, nil
			case approval.StatusDenied, approval.StatusExpired:
				return Declined, nil
			}
		}
	}
}

func randomSuffix() string {
	var b [4]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
