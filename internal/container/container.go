// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

// Package container implements interactive storage containers and the
// coordination layer players use to open, inspect, and move items through
// them. The mutable core state (open sessions, in-flight mutation guards)
// lives here; durable container and player snapshots are loaded and stored
// through repository interfaces.
package container

import (
	"maps"
	"strconv"
	"time"

	"github.com/oklog/ulid/v2"
)

// SourceType identifies what kind of thing a container is attached to.
// Fixed at creation.
type SourceType string

const (
	// SourceEnvironment is a world prop (chest, barrel, shelf).
	SourceEnvironment SourceType = "environment"
	// SourceEquipment is a worn-equipment slot on an entity.
	SourceEquipment SourceType = "equipment"
	// SourceCorpse is a loot drop created on death.
	SourceCorpse SourceType = "corpse"
)

// Validate checks that the source type is one of the known values.
func (s SourceType) Validate() error {
	switch s {
	case SourceEnvironment, SourceEquipment, SourceCorpse:
		return nil
	}
	return &ValidationError{Field: "source_type", Message: "unknown source type " + strconv.Quote(string(s))}
}

// LockState is the container's lock setting.
type LockState string

const (
	// LockStateUnlocked allows anyone passing the access policy to open.
	LockStateUnlocked LockState = "unlocked"
	// LockStateLocked requires the configured key item or admin access.
	LockStateLocked LockState = "locked"
	// LockStateSealed is admin-only; a seal cannot be opened with a key.
	LockStateSealed LockState = "sealed"
)

// Validate checks that the lock state is one of the known values.
func (l LockState) Validate() error {
	switch l {
	case LockStateUnlocked, LockStateLocked, LockStateSealed:
		return nil
	}
	return &ValidationError{Field: "lock_state", Message: "unknown lock state " + strconv.Quote(string(l))}
}

// Capacity bounds for container slot counts.
const (
	MinCapacitySlots = 1
	MaxCapacitySlots = 20
)

// Metadata keys used by containers.
const (
	// MetaGracePeriodStart holds the RFC 3339 timestamp the corpse grace
	// period started at. Absent means the corpse was just created and the
	// grace period is treated as active indefinitely.
	MetaGracePeriodStart = "grace_period_start"
	// MetaGracePeriodSeconds holds the grace period length in seconds.
	MetaGracePeriodSeconds = "grace_period_seconds"
	// MetaKeyItemID names the item that unlocks a locked container.
	MetaKeyItemID = "key_item_id"
)

// ItemStack is a quantity of a specific item instance occupying one
// capacity slot. Stacks merge only on exact (ItemID, InstanceID) identity.
type ItemStack struct {
	ItemID     ulid.ULID         `json:"item_id"`
	InstanceID ulid.ULID         `json:"instance_id"`
	Quantity   int               `json:"quantity"`
	SlotType   string            `json:"slot_type,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// SameIdentity reports whether two stacks refer to the same item instance.
func (s ItemStack) SameIdentity(other ItemStack) bool {
	return s.ItemID == other.ItemID && s.InstanceID == other.InstanceID
}

// Clone returns a deep copy of the stack.
func (s ItemStack) Clone() ItemStack {
	out := s
	if s.Metadata != nil {
		out.Metadata = maps.Clone(s.Metadata)
	}
	return out
}

// CloneStacks returns a deep copy of an item stack list.
func CloneStacks(items []ItemStack) []ItemStack {
	out := make([]ItemStack, len(items))
	for i, s := range items {
		out[i] = s.Clone()
	}
	return out
}

// Container is a capacity-bounded holder of item stacks. Instances are
// value snapshots owned by the caller; shared state is never aliased.
type Container struct {
	ID            ulid.ULID
	SourceType    SourceType
	OwnerID       *ulid.ULID // set for equipment and corpse containers
	RoomID        *ulid.ULID // set for environment and corpse containers
	EntityID      *ulid.ULID // equipping entity for equipment containers
	LockState     LockState
	CapacitySlots int
	WeightLimit   *float64
	Items         []ItemStack
	AllowedRoles  []string
	Metadata      map[string]string
	CreatedAt     time.Time
}

// Clone returns a deep copy of the container snapshot.
func (c *Container) Clone() *Container {
	out := *c
	out.Items = CloneStacks(c.Items)
	if c.AllowedRoles != nil {
		out.AllowedRoles = make([]string, len(c.AllowedRoles))
		copy(out.AllowedRoles, c.AllowedRoles)
	}
	if c.Metadata != nil {
		out.Metadata = maps.Clone(c.Metadata)
	}
	if c.OwnerID != nil {
		id := *c.OwnerID
		out.OwnerID = &id
	}
	if c.RoomID != nil {
		id := *c.RoomID
		out.RoomID = &id
	}
	if c.EntityID != nil {
		id := *c.EntityID
		out.EntityID = &id
	}
	if c.WeightLimit != nil {
		w := *c.WeightLimit
		out.WeightLimit = &w
	}
	return &out
}

// FreeSlots returns the number of unoccupied capacity slots.
func (c *Container) FreeSlots() int {
	return c.CapacitySlots - len(c.Items)
}

// KeyItemID returns the configured key item, if any.
func (c *Container) KeyItemID() (ulid.ULID, bool) {
	raw, ok := c.Metadata[MetaKeyItemID]
	if !ok {
		return ulid.ULID{}, false
	}
	id, err := ulid.Parse(raw)
	if err != nil {
		return ulid.ULID{}, false
	}
	return id, true
}

// GracePeriodEnd computes when the corpse looting grace period ends.
// Returns active=false when no grace period applies to this container.
// An active grace period with no recorded start has no end (end is the
// zero time and open=false distinguishes it via the second return).
func (c *Container) GracePeriodEnd() (end time.Time, bounded, active bool) {
	if c.SourceType != SourceCorpse || c.OwnerID == nil {
		return time.Time{}, false, false
	}
	start, ok := c.Metadata[MetaGracePeriodStart]
	if !ok {
		// Just-created corpse with no bookkeeping yet: exclusive to owner.
		return time.Time{}, false, true
	}
	startAt, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, false, true
	}
	seconds, err := strconv.Atoi(c.Metadata[MetaGracePeriodSeconds])
	if err != nil || seconds < 0 {
		seconds = 0
	}
	return startAt.Add(time.Duration(seconds) * time.Second), true, true
}

// Validate checks the container's structural invariants.
func (c *Container) Validate() error {
	if c.ID.IsZero() {
		return &ValidationError{Field: "id", Message: "cannot be zero"}
	}
	if err := c.SourceType.Validate(); err != nil {
		return err
	}
	if err := c.LockState.Validate(); err != nil {
		return err
	}
	if c.CapacitySlots < MinCapacitySlots || c.CapacitySlots > MaxCapacitySlots {
		return &ValidationError{
			Field:   "capacity_slots",
			Message: "must be between " + strconv.Itoa(MinCapacitySlots) + " and " + strconv.Itoa(MaxCapacitySlots),
		}
	}
	if len(c.Items) > c.CapacitySlots {
		return &ValidationError{Field: "items", Message: "exceeds capacity"}
	}
	for _, s := range c.Items {
		if s.Quantity <= 0 {
			return &ValidationError{Field: "items", Message: "stack quantity must be positive"}
		}
	}
	return nil
}
