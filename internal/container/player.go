// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultInventorySlots is the inventory capacity used when a player
// record does not carry an explicit slot count.
const DefaultInventorySlots = 20

// Player is a snapshot of the actor interacting with a container. The
// core reads it through PlayerRepository; it never mutates the snapshot
// in place.
type Player struct {
	ID             ulid.ULID
	Name           string
	CurrentRoomID  *ulid.ULID // nil if not in the world
	Role           string
	Admin          bool
	Inventory      []ItemStack
	InventorySlots int
	CreatedAt      time.Time
}

// Clone returns a deep copy of the player snapshot.
func (p *Player) Clone() *Player {
	out := *p
	out.Inventory = CloneStacks(p.Inventory)
	if p.CurrentRoomID != nil {
		id := *p.CurrentRoomID
		out.CurrentRoomID = &id
	}
	return &out
}

// InRoom reports whether the player is currently in the given room.
func (p *Player) InRoom(roomID ulid.ULID) bool {
	return p.CurrentRoomID != nil && *p.CurrentRoomID == roomID
}

// HasItem reports whether the player's inventory holds at least one of
// the given item, matching on ItemID across all instances.
func (p *Player) HasItem(itemID ulid.ULID) bool {
	for _, s := range p.Inventory {
		if s.ItemID == itemID && s.Quantity > 0 {
			return true
		}
	}
	return false
}

// Slots returns the player's inventory capacity, falling back to the
// default when unset.
func (p *Player) Slots() int {
	if p.InventorySlots <= 0 {
		return DefaultInventorySlots
	}
	return p.InventorySlots
}

// Validate checks that the player snapshot has required fields.
func (p *Player) Validate() error {
	if p.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if p.CurrentRoomID != nil && p.CurrentRoomID.IsZero() {
		return &ValidationError{Field: "current_room_id", Message: "cannot be zero"}
	}
	for _, s := range p.Inventory {
		if s.Quantity <= 0 {
			return &ValidationError{Field: "inventory", Message: "stack quantity must be positive"}
		}
	}
	return nil
}
