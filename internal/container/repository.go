// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// ContainerUpdate is a partial update applied to a stored container.
// Nil fields are left unchanged.
//
//nolint:revive // stutter is acceptable; callers outside the package read container.ContainerUpdate
type ContainerUpdate struct {
	Items     *[]ItemStack
	LockState *LockState
	Metadata  *map[string]string
}

// ContainerRepository manages durable container snapshots.
//
//nolint:revive // stutter is acceptable; callers outside the package read container.ContainerRepository
type ContainerRepository interface {
	// Get retrieves a container by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*Container, error)

	// Create persists a new container.
	Create(ctx context.Context, c *Container) error

	// Update applies a partial update and returns the updated snapshot.
	// Returns ErrNotFound if absent.
	Update(ctx context.Context, id ulid.ULID, update ContainerUpdate) (*Container, error)

	// Delete removes a container by ID. Returns ErrNotFound if absent.
	Delete(ctx context.Context, id ulid.ULID) error

	// ListAtRoom returns all containers located in a room.
	ListAtRoom(ctx context.Context, roomID ulid.ULID) ([]*Container, error)
}

// PlayerRepository reads player snapshots and writes back inventories.
type PlayerRepository interface {
	// Get retrieves a player by ID. Returns ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*Player, error)

	// UpdateInventory replaces a player's inventory and returns the
	// updated snapshot. Returns ErrNotFound if absent.
	UpdateInventory(ctx context.Context, id ulid.ULID, items []ItemStack) (*Player, error)
}
