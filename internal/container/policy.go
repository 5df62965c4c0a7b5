// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"time"

	"github.com/gobwas/glob"
)

// DenyReason identifies why the access policy refused an actor.
type DenyReason string

const (
	// DenyRoomMismatch means the actor is not in the container's room.
	DenyRoomMismatch DenyReason = "room_mismatch"
	// DenyOwnershipMismatch means the equipment container belongs to a
	// different entity.
	DenyOwnershipMismatch DenyReason = "ownership_mismatch"
	// DenyRoleMismatch means the actor's role is not on the allow-list.
	DenyRoleMismatch DenyReason = "role_mismatch"
	// DenyGracePeriod means the corpse is still exclusive to its owner.
	DenyGracePeriod DenyReason = "grace_period"
	// DenySealed means the container is sealed and the actor is not admin.
	DenySealed DenyReason = "sealed"
	// DenyLocked means the container is locked and the actor holds no key.
	DenyLocked DenyReason = "locked"
)

// Kind maps a denial reason to its error kind. Locked containers surface
// ErrLocked; every other refusal is ErrAccessDenied, including sealed
// containers, which deliberately do not reveal that a key would be useless.
func (r DenyReason) Kind() error {
	if r == DenyLocked {
		return ErrLocked
	}
	return ErrAccessDenied
}

// Decision is the outcome of an access policy evaluation.
type Decision struct {
	Allowed bool
	Reason  DenyReason // set only when Allowed is false
}

// Allow is the positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny refuses access with the given reason.
func Deny(reason DenyReason) Decision { return Decision{Reason: reason} }

// Policy decides whether an actor may interact with a container. It is a
// pure decision table over the container snapshot, the actor, and the
// current time; it performs no I/O and keeps no state.
type Policy struct{}

// Decide evaluates the access rules in order; the first refusal wins.
//
//  1. Proximity: environment and corpse containers require the actor to
//     be in the container's room.
//  2. Ownership: equipment containers open only for the equipping entity.
//  3. Role allow-list: when non-empty, the actor's role must match one of
//     the patterns unless the actor is admin.
//  4. Corpse grace period: while active, only the corpse owner or an
//     admin may open.
//  5. Sealed: admin only.
//  6. Locked: admin, or the configured key item in the actor's inventory.
//     A locked container with no key configured is admin-only.
func (Policy) Decide(c *Container, actor *Player, now time.Time) Decision {
	if c.SourceType == SourceEnvironment || c.SourceType == SourceCorpse {
		if c.RoomID == nil || !actor.InRoom(*c.RoomID) {
			return Deny(DenyRoomMismatch)
		}
	}

	if c.SourceType == SourceEquipment {
		if c.EntityID == nil || *c.EntityID != actor.ID {
			return Deny(DenyOwnershipMismatch)
		}
	}

	if len(c.AllowedRoles) > 0 && !actor.Admin {
		if !roleAllowed(c.AllowedRoles, actor.Role) {
			return Deny(DenyRoleMismatch)
		}
	}

	if end, bounded, active := c.GracePeriodEnd(); active {
		if !bounded || now.Before(end) {
			if !actor.Admin && (c.OwnerID == nil || *c.OwnerID != actor.ID) {
				return Deny(DenyGracePeriod)
			}
		}
	}

	switch c.LockState {
	case LockStateSealed:
		if !actor.Admin {
			return Deny(DenySealed)
		}
	case LockStateLocked:
		if actor.Admin {
			break
		}
		keyID, ok := c.KeyItemID()
		if !ok || !actor.HasItem(keyID) {
			return Deny(DenyLocked)
		}
	}

	return Allow()
}

// DecideLockChange evaluates whether the actor may move the container's
// lock state to target. Only the owner or an admin may lock or unlock;
// sealing and unsealing are admin operations.
func (Policy) DecideLockChange(c *Container, actor *Player, target LockState) Decision {
	if actor.Admin {
		return Allow()
	}
	if c.LockState == LockStateSealed || target == LockStateSealed {
		return Deny(DenySealed)
	}
	if c.OwnerID == nil || *c.OwnerID != actor.ID {
		return Deny(DenyOwnershipMismatch)
	}
	return Allow()
}

// roleAllowed reports whether role matches any allow-list entry. Entries
// are glob patterns with ':' as separator (e.g. "guild:*"); a pattern
// that fails to compile falls back to exact comparison.
func roleAllowed(patterns []string, role string) bool {
	for _, pattern := range patterns {
		if pattern == role {
			return true
		}
		g, err := glob.Compile(pattern, ':')
		if err != nil {
			continue
		}
		if g.Match(role) {
			return true
		}
	}
	return false
}
