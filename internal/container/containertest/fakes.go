// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

// Package containertest provides in-memory fakes for container tests.
package containertest

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duskhall/duskhall/internal/container"
)

// MemoryContainerRepository is a thread-safe in-memory ContainerRepository.
type MemoryContainerRepository struct {
	mu         sync.Mutex
	containers map[ulid.ULID]*container.Container
}

// NewMemoryContainerRepository creates an empty in-memory repository.
func NewMemoryContainerRepository() *MemoryContainerRepository {
	return &MemoryContainerRepository{
		containers: make(map[ulid.ULID]*container.Container),
	}
}

// Get retrieves a container by ID.
func (r *MemoryContainerRepository) Get(_ context.Context, id ulid.ULID) (*container.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.containers[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	return c.Clone(), nil
}

// Create persists a new container.
func (r *MemoryContainerRepository) Create(_ context.Context, c *container.Container) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.containers[c.ID]; ok {
		return container.ErrAlreadyExists
	}
	r.containers[c.ID] = c.Clone()
	return nil
}

// Update applies a partial update and returns the updated snapshot.
func (r *MemoryContainerRepository) Update(_ context.Context, id ulid.ULID, update container.ContainerUpdate) (*container.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.containers[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	if update.Items != nil {
		c.Items = container.CloneStacks(*update.Items)
	}
	if update.LockState != nil {
		c.LockState = *update.LockState
	}
	if update.Metadata != nil {
		c.Metadata = make(map[string]string, len(*update.Metadata))
		for k, v := range *update.Metadata {
			c.Metadata[k] = v
		}
	}
	return c.Clone(), nil
}

// Delete removes a container by ID.
func (r *MemoryContainerRepository) Delete(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.containers[id]; !ok {
		return oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	delete(r.containers, id)
	return nil
}

// ListAtRoom returns all containers located in a room.
func (r *MemoryContainerRepository) ListAtRoom(_ context.Context, roomID ulid.ULID) ([]*container.Container, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*container.Container
	for _, c := range r.containers {
		if c.RoomID != nil && *c.RoomID == roomID {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// MemoryPlayerRepository is a thread-safe in-memory PlayerRepository.
type MemoryPlayerRepository struct {
	mu      sync.Mutex
	players map[ulid.ULID]*container.Player
}

// NewMemoryPlayerRepository creates an empty in-memory repository.
func NewMemoryPlayerRepository() *MemoryPlayerRepository {
	return &MemoryPlayerRepository{
		players: make(map[ulid.ULID]*container.Player),
	}
}

// Put stores a player snapshot, replacing any existing one.
func (r *MemoryPlayerRepository) Put(p *container.Player) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[p.ID] = p.Clone()
}

// Get retrieves a player by ID.
func (r *MemoryPlayerRepository) Get(_ context.Context, id ulid.ULID) (*container.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	return p.Clone(), nil
}

// UpdateInventory replaces a player's inventory.
func (r *MemoryPlayerRepository) UpdateInventory(_ context.Context, id ulid.ULID, items []container.ItemStack) (*container.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.players[id]
	if !ok {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	p.Inventory = container.CloneStacks(items)
	return p.Clone(), nil
}

// RecordedEvent is one event captured by RecordingEmitter.
type RecordedEvent struct {
	Stream  string
	Type    string
	Payload []byte
}

// RecordingEmitter captures emitted events for assertions.
type RecordingEmitter struct {
	mu     sync.Mutex
	events []RecordedEvent
	// Err, when set, is returned from every Emit call.
	Err error
}

// Emit records the event.
func (e *RecordingEmitter) Emit(_ context.Context, stream, eventType string, payload []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, RecordedEvent{Stream: stream, Type: eventType, Payload: payload})
	return e.Err
}

// Events returns a copy of the captured events.
func (e *RecordingEmitter) Events() []RecordedEvent {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]RecordedEvent, len(e.events))
	copy(out, e.events)
	return out
}

// Compile-time interface checks.
var (
	_ container.ContainerRepository = (*MemoryContainerRepository)(nil)
	_ container.PlayerRepository    = (*MemoryPlayerRepository)(nil)
	_ container.EventEmitter        = (*RecordingEmitter)(nil)
)
