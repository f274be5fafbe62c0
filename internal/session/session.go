// Package session models transfer of an authenticated session between two
// browser profiles. The same-owner check is orthogonal to mode: it always
// runs when session verification is enabled and cannot be bypassed by mode
// elevation.
package session

import (
	"context"
	"sync"

	"github.com/okume/actguard/internal/model"
)

// TransferRecord describes one requested session transfer.
type TransferRecord struct {
	Source            string `json:"source"`
	Target            string `json:"target"`
	OwnershipVerified bool   `json:"ownership_verified"`
}

// OwnershipVerifier decides whether two session identifiers belong to the
// same authenticated principal.
type OwnershipVerifier interface {
	SameOwner(ctx context.Context, source, target string) (bool, error)
}

// Syncer performs the actual data transfer. It is an external collaborator
// invoked only after the gate approves; calls are ctx-bounded.
type Syncer interface {
	Sync(ctx context.Context, rec TransferRecord) error
}

// StaticOwners is an OwnershipVerifier backed by an in-memory map of
// session identifier to owner. Used by tests and the CLI.
type StaticOwners struct {
	mu     sync.RWMutex
	owners map[string]string
}

// NewStaticOwners creates a verifier from an owner map.
func NewStaticOwners(owners map[string]string) *StaticOwners {
	m := make(map[string]string, len(owners))
	for k, v := range owners {
		m[k] = v
	}
	return &StaticOwners{owners: m}
}

// Register assigns a session to an owner.
func (s *StaticOwners) Register(sessionID, owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owners[sessionID] = owner
}

// SameOwner reports whether both sessions map to the same known owner.
// Unknown sessions never verify.
func (s *StaticOwners) SameOwner(ctx context.Context, source, target string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	src, okSrc := s.owners[source]
	tgt, okTgt := s.owners[target]
	return okSrc && okTgt && src == tgt, nil
}

// Verify runs the ownership predicate and returns the verified transfer
// record, or an OwnershipMismatchError with zero data transferred.
func Verify(ctx context.Context, v OwnershipVerifier, source, target string) (TransferRecord, error) {
	same, err := v.SameOwner(ctx, source, target)
	if err != nil {
		return TransferRecord{}, err
	}
	if !same {
		return TransferRecord{}, &model.OwnershipMismatchError{Source: source, Target: target}
	}
	return TransferRecord{Source: source, Target: target, OwnershipVerified: true}, nil
}
