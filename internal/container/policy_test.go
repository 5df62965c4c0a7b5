// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhall/duskhall/internal/container"
)

func ptr(id ulid.ULID) *ulid.ULID { return &id }

func envContainer(roomID ulid.ULID) *container.Container {
	return &container.Container{
		ID:            ulid.Make(),
		SourceType:    container.SourceEnvironment,
		RoomID:        ptr(roomID),
		LockState:     container.LockStateUnlocked,
		CapacitySlots: 10,
	}
}

func playerInRoom(roomID ulid.ULID) *container.Player {
	return &container.Player{
		ID:            ulid.Make(),
		Name:          "Tester",
		CurrentRoomID: ptr(roomID),
		Role:          "player",
	}
}

func TestPolicy_Proximity(t *testing.T) {
	var policy container.Policy
	roomID := ulid.Make()
	now := time.Now()

	t.Run("denies player in another room", func(t *testing.T) {
		c := envContainer(roomID)
		actor := playerInRoom(ulid.Make())

		decision := policy.Decide(c, actor, now)
		require.False(t, decision.Allowed)
		assert.Equal(t, container.DenyRoomMismatch, decision.Reason)
		assert.ErrorIs(t, decision.Reason.Kind(), container.ErrAccessDenied)
	})

	t.Run("allows player in the container's room", func(t *testing.T) {
		c := envContainer(roomID)
		actor := playerInRoom(roomID)

		assert.True(t, policy.Decide(c, actor, now).Allowed)
	})

	t.Run("denies player with no room", func(t *testing.T) {
		c := envContainer(roomID)
		actor := playerInRoom(roomID)
		actor.CurrentRoomID = nil

		decision := policy.Decide(c, actor, now)
		require.False(t, decision.Allowed)
		assert.Equal(t, container.DenyRoomMismatch, decision.Reason)
	})

	t.Run("equipment containers skip the proximity check", func(t *testing.T) {
		actor := playerInRoom(roomID)
		c := &container.Container{
			ID:            ulid.Make(),
			SourceType:    container.SourceEquipment,
			EntityID:      ptr(actor.ID),
			LockState:     container.LockStateUnlocked,
			CapacitySlots: 4,
		}
		actor.CurrentRoomID = nil

		assert.True(t, policy.Decide(c, actor, now).Allowed)
	})
}

func TestPolicy_Ownership(t *testing.T) {
	var policy container.Policy
	now := time.Now()
	actor := playerInRoom(ulid.Make())

	c := &container.Container{
		ID:            ulid.Make(),
		SourceType:    container.SourceEquipment,
		EntityID:      ptr(ulid.Make()),
		LockState:     container.LockStateUnlocked,
		CapacitySlots: 4,
	}

	decision := policy.Decide(c, actor, now)
	require.False(t, decision.Allowed)
	assert.Equal(t, container.DenyOwnershipMismatch, decision.Reason)

	c.EntityID = ptr(actor.ID)
	assert.True(t, policy.Decide(c, actor, now).Allowed)
}

func TestPolicy_RoleAllowList(t *testing.T) {
	var policy container.Policy
	roomID := ulid.Make()
	now := time.Now()

	tests := []struct {
		name    string
		roles   []string
		role    string
		admin   bool
		allowed bool
	}{
		{name: "empty list allows anyone", roles: nil, role: "player", allowed: true},
		{name: "matching role", roles: []string{"healer", "smith"}, role: "smith", allowed: true},
		{name: "non-matching role", roles: []string{"healer"}, role: "player", allowed: false},
		{name: "glob pattern", roles: []string{"guild:*"}, role: "guild:ironmongers", allowed: true},
		{name: "glob pattern non-match", roles: []string{"guild:*"}, role: "player", allowed: false},
		{name: "admin bypasses list", roles: []string{"healer"}, role: "player", admin: true, allowed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := envContainer(roomID)
			c.AllowedRoles = tt.roles
			actor := playerInRoom(roomID)
			actor.Role = tt.role
			actor.Admin = tt.admin

			decision := policy.Decide(c, actor, now)
			assert.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				assert.Equal(t, container.DenyRoleMismatch, decision.Reason)
			}
		})
	}
}

func TestPolicy_CorpseGracePeriod(t *testing.T) {
	var policy container.Policy
	roomID := ulid.Make()
	ownerID := ulid.Make()
	now := time.Now()

	corpse := func(meta map[string]string) *container.Container {
		return &container.Container{
			ID:            ulid.Make(),
			SourceType:    container.SourceCorpse,
			OwnerID:       ptr(ownerID),
			RoomID:        ptr(roomID),
			LockState:     container.LockStateUnlocked,
			CapacitySlots: 10,
			Metadata:      meta,
		}
	}

	activeMeta := map[string]string{
		container.MetaGracePeriodStart:   now.Add(-30 * time.Second).Format(time.RFC3339),
		container.MetaGracePeriodSeconds: "120",
	}
	expiredMeta := map[string]string{
		container.MetaGracePeriodStart:   now.Add(-10 * time.Minute).Format(time.RFC3339),
		container.MetaGracePeriodSeconds: strconv.Itoa(60),
	}

	t.Run("denies stranger while active", func(t *testing.T) {
		decision := policy.Decide(corpse(activeMeta), playerInRoom(roomID), now)
		require.False(t, decision.Allowed)
		assert.Equal(t, container.DenyGracePeriod, decision.Reason)
	})

	t.Run("allows owner while active", func(t *testing.T) {
		actor := playerInRoom(roomID)
		actor.ID = ownerID
		assert.True(t, policy.Decide(corpse(activeMeta), actor, now).Allowed)
	})

	t.Run("allows admin while active", func(t *testing.T) {
		actor := playerInRoom(roomID)
		actor.Admin = true
		assert.True(t, policy.Decide(corpse(activeMeta), actor, now).Allowed)
	})

	t.Run("allows stranger after expiry", func(t *testing.T) {
		assert.True(t, policy.Decide(corpse(expiredMeta), playerInRoom(roomID), now).Allowed)
	})

	t.Run("missing start means active indefinitely", func(t *testing.T) {
		decision := policy.Decide(corpse(nil), playerInRoom(roomID), now)
		require.False(t, decision.Allowed)
		assert.Equal(t, container.DenyGracePeriod, decision.Reason)
	})

	t.Run("ownerless corpse has no grace period", func(t *testing.T) {
		c := corpse(activeMeta)
		c.OwnerID = nil
		assert.True(t, policy.Decide(c, playerInRoom(roomID), now).Allowed)
	})
}

func TestPolicy_LockStates(t *testing.T) {
	var policy container.Policy
	roomID := ulid.Make()
	now := time.Now()
	keyID := ulid.Make()

	t.Run("sealed denies non-admin as access denied", func(t *testing.T) {
		c := envContainer(roomID)
		c.LockState = container.LockStateSealed

		decision := policy.Decide(c, playerInRoom(roomID), now)
		require.False(t, decision.Allowed)
		assert.Equal(t, container.DenySealed, decision.Reason)
		assert.ErrorIs(t, decision.Reason.Kind(), container.ErrAccessDenied)
	})

	t.Run("sealed allows admin", func(t *testing.T) {
		c := envContainer(roomID)
		c.LockState = container.LockStateSealed
		actor := playerInRoom(roomID)
		actor.Admin = true

		assert.True(t, policy.Decide(c, actor, now).Allowed)
	})

	t.Run("locked without key configured is admin only", func(t *testing.T) {
		c := envContainer(roomID)
		c.LockState = container.LockStateLocked

		decision := policy.Decide(c, playerInRoom(roomID), now)
		require.False(t, decision.Allowed)
		assert.Equal(t, container.DenyLocked, decision.Reason)
		assert.ErrorIs(t, decision.Reason.Kind(), container.ErrLocked)
	})

	t.Run("locked opens with the key item in inventory", func(t *testing.T) {
		c := envContainer(roomID)
		c.LockState = container.LockStateLocked
		c.Metadata = map[string]string{container.MetaKeyItemID: keyID.String()}

		actor := playerInRoom(roomID)
		decision := policy.Decide(c, actor, now)
		require.False(t, decision.Allowed, "no key held yet")

		actor.Inventory = []container.ItemStack{{ItemID: keyID, InstanceID: ulid.Make(), Quantity: 1}}
		assert.True(t, policy.Decide(c, actor, now).Allowed)
	})
}

func TestPolicy_DecideLockChange(t *testing.T) {
	var policy container.Policy
	ownerID := ulid.Make()

	c := &container.Container{
		ID:            ulid.Make(),
		SourceType:    container.SourceEnvironment,
		OwnerID:       ptr(ownerID),
		RoomID:        ptr(ulid.Make()),
		LockState:     container.LockStateUnlocked,
		CapacitySlots: 5,
	}

	owner := &container.Player{ID: ownerID, Name: "Owner"}
	stranger := &container.Player{ID: ulid.Make(), Name: "Stranger"}
	admin := &container.Player{ID: ulid.Make(), Name: "Admin", Admin: true}

	assert.True(t, policy.DecideLockChange(c, owner, container.LockStateLocked).Allowed)
	assert.False(t, policy.DecideLockChange(c, stranger, container.LockStateLocked).Allowed)
	assert.True(t, policy.DecideLockChange(c, admin, container.LockStateLocked).Allowed)

	// Only admins seal or unseal.
	assert.False(t, policy.DecideLockChange(c, owner, container.LockStateSealed).Allowed)
	assert.True(t, policy.DecideLockChange(c, admin, container.LockStateSealed).Allowed)

	sealed := c.Clone()
	sealed.LockState = container.LockStateSealed
	decision := policy.DecideLockChange(sealed, owner, container.LockStateUnlocked)
	assert.False(t, decision.Allowed)
	assert.Equal(t, container.DenySealed, decision.Reason)
	assert.True(t, policy.DecideLockChange(sealed, admin, container.LockStateUnlocked).Allowed)
}
