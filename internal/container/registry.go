// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	tokenEntropy     = ulid.Monotonic(rand.Reader, 0)
	tokenEntropyLock sync.Mutex
)

// newToken generates a fresh opaque mutation token.
func newToken() string {
	tokenEntropyLock.Lock()
	defer tokenEntropyLock.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), tokenEntropy).String()
}

// SessionRegistry tracks which players currently hold a container open
// and the mutation token issued to each. It is the only long-lived shared
// mutable state in the core; one mutex covers the whole structure so that
// removing an emptied per-container map stays atomic with respect to
// concurrent opens on the same container.
//
// Sessions live for the process lifetime only. A restart silently
// invalidates every open session; clients must re-open.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[ulid.ULID]map[ulid.ULID]string // containerID → playerID → token
}

// NewSessionRegistry creates an empty session registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[ulid.ULID]map[ulid.ULID]string),
	}
}

// TryOpen issues a token for (containerID, playerID). Returns ok=false
// without issuing when the pair already holds a live session; the caller
// surfaces that as "already open". Two different players may hold
// independent sessions on the same container.
func (r *SessionRegistry) TryOpen(containerID, playerID ulid.ULID) (token string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, exists := r.sessions[containerID]
	if !exists {
		players = make(map[ulid.ULID]string)
		r.sessions[containerID] = players
	}
	if _, open := players[playerID]; open {
		return "", false
	}

	token = newToken()
	players[playerID] = token
	return token, true
}

// Verify reports whether a live session exists for the key and the stored
// token equals the supplied token.
func (r *SessionRegistry) Verify(containerID, playerID ulid.ULID, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matches(containerID, playerID, token)
}

// Close removes the session if and only if Verify would succeed. Returns
// false without removal otherwise; a second concurrent close finds no
// matching entry and fails, which is how double close is rejected.
func (r *SessionRegistry) Close(containerID, playerID ulid.ULID, token string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.matches(containerID, playerID, token) {
		return false
	}
	players := r.sessions[containerID]
	delete(players, playerID)
	if len(players) == 0 {
		delete(r.sessions, containerID)
	}
	return true
}

// TokenFor returns the live token for (containerID, playerID), if any.
// Callers wanting open-or-reuse semantics look up here before TryOpen.
func (r *SessionRegistry) TokenFor(containerID, playerID ulid.ULID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	players, exists := r.sessions[containerID]
	if !exists {
		return "", false
	}
	token, open := players[playerID]
	return token, open
}

// OpenSessions returns the number of live sessions across all containers.
func (r *SessionRegistry) OpenSessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := 0
	for _, players := range r.sessions {
		total += len(players)
	}
	return total
}

// matches requires r.mu held.
func (r *SessionRegistry) matches(containerID, playerID ulid.ULID, token string) bool {
	players, exists := r.sessions[containerID]
	if !exists {
		return false
	}
	stored, open := players[playerID]
	return open && token != "" && stored == token
}
