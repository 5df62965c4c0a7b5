// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"context"
	"encoding/json"

	"github.com/samber/oops"
)

// EventEmitter publishes container events to interested subsystems
// (notifications, audit). The core fires events only on success; a nil
// emitter disables them.
type EventEmitter interface {
	// Emit publishes an event to the given stream.
	Emit(ctx context.Context, stream string, eventType string, payload []byte) error
}

// Operation names carried in event payloads.
const (
	OpOpen                  = "open"
	OpClose                 = "close"
	OpTransferToContainer   = "transfer_to_container"
	OpTransferFromContainer = "transfer_from_container"
	OpLootAll               = "loot_all"
	OpLockChange            = "lock_change"
)

// SessionPayload describes an open or close event.
type SessionPayload struct {
	Operation   string `json:"operation"` // "open" | "close"
	ContainerID string `json:"container_id"`
	ActorID     string `json:"actor_id"`
}

// Validate checks that the SessionPayload has all required fields.
func (p *SessionPayload) Validate() error {
	if p.Operation != OpOpen && p.Operation != OpClose {
		return &ValidationError{Field: "operation", Message: "must be 'open' or 'close'"}
	}
	if p.ContainerID == "" {
		return &ValidationError{Field: "container_id", Message: "cannot be empty"}
	}
	if p.ActorID == "" {
		return &ValidationError{Field: "actor_id", Message: "cannot be empty"}
	}
	return nil
}

// TransferPayload describes a completed item transfer. StacksMoved is the
// diff summary: 1 for single transfers, the moved count for loot-all.
type TransferPayload struct {
	Operation   string `json:"operation"`
	ContainerID string `json:"container_id"`
	ActorID     string `json:"actor_id"`
	ItemID      string `json:"item_id,omitempty"`
	InstanceID  string `json:"instance_id,omitempty"`
	Quantity    int    `json:"quantity,omitempty"`
	StacksMoved int    `json:"stacks_moved"`
}

// Validate checks that the TransferPayload has all required fields.
func (p *TransferPayload) Validate() error {
	switch p.Operation {
	case OpTransferToContainer, OpTransferFromContainer, OpLootAll:
	default:
		return &ValidationError{Field: "operation", Message: "must be a transfer operation"}
	}
	if p.ContainerID == "" {
		return &ValidationError{Field: "container_id", Message: "cannot be empty"}
	}
	if p.ActorID == "" {
		return &ValidationError{Field: "actor_id", Message: "cannot be empty"}
	}
	if p.StacksMoved < 0 {
		return &ValidationError{Field: "stacks_moved", Message: "cannot be negative"}
	}
	return nil
}

// LockChangePayload describes a lock state change.
type LockChangePayload struct {
	Operation   string `json:"operation"` // always "lock_change"
	ContainerID string `json:"container_id"`
	ActorID     string `json:"actor_id"`
	From        string `json:"from"`
	To          string `json:"to"`
}

// Validate checks that the LockChangePayload has all required fields.
func (p *LockChangePayload) Validate() error {
	if p.Operation != OpLockChange {
		return &ValidationError{Field: "operation", Message: "must be 'lock_change'"}
	}
	if p.ContainerID == "" {
		return &ValidationError{Field: "container_id", Message: "cannot be empty"}
	}
	if p.ActorID == "" {
		return &ValidationError{Field: "actor_id", Message: "cannot be empty"}
	}
	if err := LockState(p.From).Validate(); err != nil {
		return err
	}
	return LockState(p.To).Validate()
}

// emitEvent marshals and publishes a payload to the container's stream.
// A nil emitter is a no-op.
func emitEvent(ctx context.Context, emitter EventEmitter, containerID, eventType string, payload interface{ Validate() error }) error {
	if emitter == nil {
		return nil
	}

	if err := payload.Validate(); err != nil {
		return oops.Code("EVENT_PAYLOAD_INVALID").With("event_type", eventType).Wrap(err)
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return oops.Code("EVENT_MARSHAL_FAILED").With("event_type", eventType).Wrap(err)
	}

	stream := "container:" + containerID
	if err := emitter.Emit(ctx, stream, eventType, data); err != nil {
		return oops.Code("EVENT_EMIT_FAILED").With("stream", stream).With("event_type", eventType).Wrap(err)
	}
	return nil
}
