// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duskhall/duskhall/internal/observability"
	"github.com/duskhall/duskhall/pkg/errutil"
)

// CoordinatorConfig holds dependencies for the Coordinator.
type CoordinatorConfig struct {
	Containers ContainerRepository
	Players    PlayerRepository
	Sessions   *SessionRegistry // optional, created if nil
	Guard      *MutationGuard   // optional, created if nil
	Emitter    EventEmitter     // optional, nil disables events
	Clock      func() time.Time // optional, defaults to time.Now
	Logger     *slog.Logger     // optional, defaults to slog.Default
}

// Coordinator orchestrates container interaction: opening and closing
// sessions, moving items in and out, and changing lock state. All durable
// reads and writes go through the repositories; the registry and guard
// are the only shared mutable state.
//
// Access is checked on Open only, not re-checked on every transfer. Open,
// Close, and the transfer operations report every failure synchronously
// as a typed error and never retry internally; LootAll is the single
// operation with partial-failure tolerance.
type Coordinator struct {
	containers ContainerRepository
	players    PlayerRepository
	sessions   *SessionRegistry
	guard      *MutationGuard
	policy     Policy
	emitter    EventEmitter
	clock      func() time.Time
	logger     *slog.Logger
}

// NewCoordinator creates a new Coordinator with the given configuration.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionRegistry()
	}
	if cfg.Guard == nil {
		cfg.Guard = NewMutationGuard()
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Coordinator{
		containers: cfg.Containers,
		players:    cfg.Players,
		sessions:   cfg.Sessions,
		guard:      cfg.Guard,
		emitter:    cfg.Emitter,
		clock:      cfg.Clock,
		logger:     cfg.Logger,
	}
}

// Sessions returns the session registry, for callers that want
// open-or-reuse semantics via TokenFor.
func (co *Coordinator) Sessions() *SessionRegistry {
	return co.sessions
}

// Open grants the player interactive access to a container and issues a
// mutation token for the session. Access policy is evaluated against the
// current container snapshot and player location; a refusal surfaces as
// ErrAccessDenied or ErrLocked. Opening a container the player already
// holds open returns ErrAlreadyOpen.
func (co *Coordinator) Open(ctx context.Context, containerID, playerID ulid.ULID) (*Container, string, error) {
	actor, err := co.players.Get(ctx, playerID)
	if err != nil {
		observability.RecordContainerOperation(OpOpen, "error")
		return nil, "", oops.Code("PLAYER_LOAD_FAILED").With("player_id", playerID.String()).Wrap(err)
	}

	c, err := co.containers.Get(ctx, containerID)
	if err != nil {
		observability.RecordContainerOperation(OpOpen, "error")
		return nil, "", oops.Code("CONTAINER_LOAD_FAILED").With("container_id", containerID.String()).Wrap(err)
	}

	if decision := co.policy.Decide(c, actor, co.clock()); !decision.Allowed {
		observability.RecordContainerOperation(OpOpen, "error")
		return nil, "", oops.Code("OPEN_REFUSED").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			With("reason", string(decision.Reason)).
			Wrap(decision.Reason.Kind())
	}

	token, ok := co.sessions.TryOpen(containerID, playerID)
	if !ok {
		observability.RecordContainerOperation(OpOpen, "error")
		return nil, "", oops.Code("ALREADY_OPEN").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			Wrap(ErrAlreadyOpen)
	}

	observability.RecordContainerOperation(OpOpen, "ok")
	observability.SetOpenSessions(co.sessions.OpenSessions())
	co.emitSession(ctx, OpOpen, containerID, playerID)

	return c, token, nil
}

// Close ends the player's session on a container. The token must match
// the live session; closing an unopened container or presenting a stale
// token returns ErrSessionInvalid. Of two racing closes with the same
// valid token exactly one succeeds.
func (co *Coordinator) Close(ctx context.Context, containerID, playerID ulid.ULID, token string) error {
	if !co.sessions.Close(containerID, playerID, token) {
		observability.RecordContainerOperation(OpClose, "error")
		return oops.Code("SESSION_INVALID").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			Wrap(ErrSessionInvalid)
	}

	observability.RecordContainerOperation(OpClose, "ok")
	observability.SetOpenSessions(co.sessions.OpenSessions())
	co.emitSession(ctx, OpClose, containerID, playerID)
	return nil
}

// TransferToContainer moves quantity of the given stack from the
// player's inventory into the container. Requires a live session token;
// a concurrent duplicate carrying the same token is suppressed. Capacity
// is checked against a fresh re-read of the container inside the guard's
// critical section, and nothing is written when either side fails.
func (co *Coordinator) TransferToContainer(ctx context.Context, containerID, playerID ulid.ULID, token string, stack ItemStack, quantity int) (*Container, *Player, error) {
	return co.transfer(ctx, OpTransferToContainer, containerID, playerID, token, stack, quantity)
}

// TransferFromContainer moves quantity of the given stack from the
// container into the player's inventory. Destination capacity is
// enforced with the same slot algorithm as the container side; when the
// inventory is full nothing is mutated on either side.
func (co *Coordinator) TransferFromContainer(ctx context.Context, containerID, playerID ulid.ULID, token string, stack ItemStack, quantity int) (*Container, *Player, error) {
	return co.transfer(ctx, OpTransferFromContainer, containerID, playerID, token, stack, quantity)
}

func (co *Coordinator) transfer(ctx context.Context, op string, containerID, playerID ulid.ULID, token string, stack ItemStack, quantity int) (*Container, *Player, error) {
	if !co.sessions.Verify(containerID, playerID, token) {
		observability.RecordContainerOperation(op, "error")
		return nil, nil, oops.Code("SESSION_INVALID").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			Wrap(ErrSessionInvalid)
	}

	proceed, release := co.guard.Acquire(playerID, token)
	if !proceed {
		observability.RecordContainerOperation(op, "error")
		observability.RecordMutationSuppressed()
		return nil, nil, oops.Code("MUTATION_SUPPRESSED").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			Wrap(ErrMutationSuppressed)
	}
	defer release()

	// Fresh reads inside the critical section; the snapshot handed out by
	// Open may be stale by now.
	c, err := co.containers.Get(ctx, containerID)
	if err != nil {
		observability.RecordContainerOperation(op, "error")
		return nil, nil, oops.Code("CONTAINER_LOAD_FAILED").With("container_id", containerID.String()).Wrap(err)
	}
	actor, err := co.players.Get(ctx, playerID)
	if err != nil {
		observability.RecordContainerOperation(op, "error")
		return nil, nil, oops.Code("PLAYER_LOAD_FAILED").With("player_id", playerID.String()).Wrap(err)
	}

	// The destination must gain exactly what the source lost. RemoveStack
	// clamps against the source's real holding, so the stack handed to
	// AddStack carries that clamped quantity rather than whatever count
	// the caller's possibly stale descriptor claims.
	var newItems, newInventory []ItemStack
	var moved int
	switch op {
	case OpTransferToContainer:
		newInventory, moved, err = RemoveStack(actor.Inventory, stack, quantity)
		if err == nil {
			add := stack.Clone()
			add.Quantity = moved
			newItems, err = AddStack(c.Items, c.CapacitySlots, add, moved)
		}
	case OpTransferFromContainer:
		newItems, moved, err = RemoveStack(c.Items, stack, quantity)
		if err == nil {
			add := stack.Clone()
			add.Quantity = moved
			newInventory, err = AddStack(actor.Inventory, actor.Slots(), add, moved)
		}
	}
	if err != nil {
		observability.RecordContainerOperation(op, "error")
		return nil, nil, oops.Code("TRANSFER_REFUSED").
			With("operation", op).
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			Wrap(err)
	}

	updated, err := co.containers.Update(ctx, containerID, ContainerUpdate{Items: &newItems})
	if err != nil {
		observability.RecordContainerOperation(op, "error")
		return nil, nil, oops.Code("CONTAINER_WRITE_FAILED").With("container_id", containerID.String()).Wrap(err)
	}
	updatedActor, err := co.players.UpdateInventory(ctx, playerID, newInventory)
	if err != nil {
		observability.RecordContainerOperation(op, "error")
		return nil, nil, oops.Code("INVENTORY_WRITE_FAILED").With("player_id", playerID.String()).Wrap(err)
	}

	observability.RecordContainerOperation(op, "ok")
	co.emitTransfer(ctx, &TransferPayload{
		Operation:   op,
		ContainerID: containerID.String(),
		ActorID:     playerID.String(),
		ItemID:      stack.ItemID.String(),
		InstanceID:  stack.InstanceID.String(),
		Quantity:    moved,
		StacksMoved: 1,
	})

	return updated, updatedActor, nil
}

// LootAll transfers every stack the container currently holds into the
// player's inventory, stopping when the inventory runs out of slots.
// Items that fail for any other reason are logged and skipped; the
// remaining stacks are still attempted. The returned snapshots reflect
// the final state after the loop, and the call itself does not fail for
// per-item errors.
func (co *Coordinator) LootAll(ctx context.Context, containerID, playerID ulid.ULID, token string) (*Container, *Player, error) {
	if !co.sessions.Verify(containerID, playerID, token) {
		observability.RecordContainerOperation(OpLootAll, "error")
		return nil, nil, oops.Code("SESSION_INVALID").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			Wrap(ErrSessionInvalid)
	}

	c, err := co.containers.Get(ctx, containerID)
	if err != nil {
		observability.RecordContainerOperation(OpLootAll, "error")
		return nil, nil, oops.Code("CONTAINER_LOAD_FAILED").With("container_id", containerID.String()).Wrap(err)
	}

	// Iterate over a one-time snapshot of the item list; each transfer
	// re-reads fresh state under the guard.
	snapshot := CloneStacks(c.Items)
	final := c
	var finalActor *Player
	moved := 0

	for _, stack := range snapshot {
		updated, updatedActor, err := co.TransferFromContainer(ctx, containerID, playerID, token, stack, stack.Quantity)
		if err != nil {
			if errors.Is(err, ErrCapacityExceeded) {
				// Destination is full; remaining stacks stay in the container.
				break
			}
			errutil.LogError(co.logger, "loot-all skipping stack", err)
			continue
		}
		final = updated
		finalActor = updatedActor
		moved++
	}

	if finalActor == nil {
		finalActor, err = co.players.Get(ctx, playerID)
		if err != nil {
			observability.RecordContainerOperation(OpLootAll, "error")
			return nil, nil, oops.Code("PLAYER_LOAD_FAILED").With("player_id", playerID.String()).Wrap(err)
		}
	}

	observability.RecordContainerOperation(OpLootAll, "ok")
	observability.RecordLootStacksMoved(moved)
	co.emitTransfer(ctx, &TransferPayload{
		Operation:   OpLootAll,
		ContainerID: containerID.String(),
		ActorID:     playerID.String(),
		StacksMoved: moved,
	})

	return final, finalActor, nil
}

// SetLockState changes a container's lock state. Only the owner or an
// admin may lock or unlock, and only an admin may seal or unseal. This
// runs outside the session/transfer flow and needs no token.
func (co *Coordinator) SetLockState(ctx context.Context, containerID, playerID ulid.ULID, target LockState) (*Container, error) {
	if err := target.Validate(); err != nil {
		observability.RecordContainerOperation(OpLockChange, "error")
		return nil, err
	}

	actor, err := co.players.Get(ctx, playerID)
	if err != nil {
		observability.RecordContainerOperation(OpLockChange, "error")
		return nil, oops.Code("PLAYER_LOAD_FAILED").With("player_id", playerID.String()).Wrap(err)
	}
	c, err := co.containers.Get(ctx, containerID)
	if err != nil {
		observability.RecordContainerOperation(OpLockChange, "error")
		return nil, oops.Code("CONTAINER_LOAD_FAILED").With("container_id", containerID.String()).Wrap(err)
	}

	if decision := co.policy.DecideLockChange(c, actor, target); !decision.Allowed {
		observability.RecordContainerOperation(OpLockChange, "error")
		return nil, oops.Code("LOCK_CHANGE_REFUSED").
			With("container_id", containerID.String()).
			With("player_id", playerID.String()).
			With("reason", string(decision.Reason)).
			Wrap(decision.Reason.Kind())
	}

	previous := c.LockState
	updated, err := co.containers.Update(ctx, containerID, ContainerUpdate{LockState: &target})
	if err != nil {
		observability.RecordContainerOperation(OpLockChange, "error")
		return nil, oops.Code("CONTAINER_WRITE_FAILED").With("container_id", containerID.String()).Wrap(err)
	}

	observability.RecordContainerOperation(OpLockChange, "ok")
	if err := emitEvent(ctx, co.emitter, containerID.String(), OpLockChange, &LockChangePayload{
		Operation:   OpLockChange,
		ContainerID: containerID.String(),
		ActorID:     playerID.String(),
		From:        string(previous),
		To:          string(target),
	}); err != nil {
		errutil.LogError(co.logger, "lock change event emit failed", err)
	}

	return updated, nil
}

// emitSession publishes an open/close event; emit failures are logged,
// never surfaced, since the operation itself already succeeded.
func (co *Coordinator) emitSession(ctx context.Context, op string, containerID, playerID ulid.ULID) {
	err := emitEvent(ctx, co.emitter, containerID.String(), op, &SessionPayload{
		Operation:   op,
		ContainerID: containerID.String(),
		ActorID:     playerID.String(),
	})
	if err != nil {
		errutil.LogError(co.logger, "session event emit failed", err)
	}
}

func (co *Coordinator) emitTransfer(ctx context.Context, payload *TransferPayload) {
	err := emitEvent(ctx, co.emitter, payload.ContainerID, payload.Operation, payload)
	if err != nil {
		errutil.LogError(co.logger, "transfer event emit failed", err)
	}
}
