// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// guardKey identifies one logical mutation attempt.
type guardKey struct {
	playerID ulid.ULID
	token    string
}

// MutationGuard suppresses concurrent duplicates of a mutation carrying
// the same token, making client-side retries (a transfer request sent
// twice after a network timeout) safe. At most one overlapping Acquire
// per (playerID, token) proceeds; once its critical section releases, the
// same token may acquire again. The guard protects against concurrent
// duplication, not against token reuse.
type MutationGuard struct {
	mu       sync.Mutex
	inFlight map[guardKey]struct{}
}

// NewMutationGuard creates an empty mutation guard.
func NewMutationGuard() *MutationGuard {
	return &MutationGuard{
		inFlight: make(map[guardKey]struct{}),
	}
}

// Acquire claims the mutation slot for (playerID, token). When proceed is
// true the caller owns the critical section and must call release exactly
// once when done. When proceed is false an identical mutation is already
// in flight and the caller must not apply; release is a no-op and safe to
// call either way.
func (g *MutationGuard) Acquire(playerID ulid.ULID, token string) (proceed bool, release func()) {
	key := guardKey{playerID: playerID, token: token}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, busy := g.inFlight[key]; busy {
		return false, func() {}
	}
	g.inFlight[key] = struct{}{}

	var once sync.Once
	return true, func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.inFlight, key)
		})
	}
}

// InFlight returns the number of mutations currently holding the guard.
func (g *MutationGuard) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.inFlight)
}
