// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhall/duskhall/internal/container"
)

func TestSessionPayload_Validate(t *testing.T) {
	valid := container.SessionPayload{
		Operation:   container.OpOpen,
		ContainerID: ulid.Make().String(),
		ActorID:     ulid.Make().String(),
	}
	assert.NoError(t, valid.Validate())

	p := valid
	p.Operation = "peek"
	assert.Error(t, p.Validate())

	p = valid
	p.ContainerID = ""
	assert.Error(t, p.Validate())

	p = valid
	p.ActorID = ""
	assert.Error(t, p.Validate())
}

func TestTransferPayload_Validate(t *testing.T) {
	valid := container.TransferPayload{
		Operation:   container.OpLootAll,
		ContainerID: ulid.Make().String(),
		ActorID:     ulid.Make().String(),
		StacksMoved: 2,
	}
	assert.NoError(t, valid.Validate())

	p := valid
	p.Operation = container.OpOpen
	assert.Error(t, p.Validate(), "session operations are not transfers")

	p = valid
	p.StacksMoved = -1
	assert.Error(t, p.Validate())
}

func TestLockChangePayload_Validate(t *testing.T) {
	valid := container.LockChangePayload{
		Operation:   container.OpLockChange,
		ContainerID: ulid.Make().String(),
		ActorID:     ulid.Make().String(),
		From:        string(container.LockStateUnlocked),
		To:          string(container.LockStateLocked),
	}
	assert.NoError(t, valid.Validate())

	p := valid
	p.To = "ajar"
	assert.Error(t, p.Validate())
}

func TestCoordinator_EventStreamAndPayload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	stack := newStack(2)
	f.setInventory(t, []container.ItemStack{stack})
	token := f.open(t)

	_, _, err := f.coordinator.TransferToContainer(ctx, f.containerID, f.playerID, token, stack, 2)
	require.NoError(t, err)
	require.NoError(t, f.coordinator.Close(ctx, f.containerID, f.playerID, token))

	events := f.emitter.Events()
	require.Len(t, events, 3)
	assert.Equal(t, container.OpOpen, events[0].Type)
	assert.Equal(t, container.OpTransferToContainer, events[1].Type)
	assert.Equal(t, container.OpClose, events[2].Type)

	var payload container.TransferPayload
	require.NoError(t, json.Unmarshal(events[1].Payload, &payload))
	assert.Equal(t, f.containerID.String(), payload.ContainerID)
	assert.Equal(t, f.playerID.String(), payload.ActorID)
	assert.Equal(t, stack.ItemID.String(), payload.ItemID)
	assert.Equal(t, 2, payload.Quantity)
	assert.Equal(t, 1, payload.StacksMoved)
}

func TestCoordinator_EmitFailureDoesNotFailOperation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.emitter.Err = assert.AnError

	emitter := f.emitter
	coordinator := container.NewCoordinator(container.CoordinatorConfig{
		Containers: f.containers,
		Players:    f.players,
		Emitter:    emitter,
	})

	_, token, err := coordinator.Open(ctx, f.containerID, f.playerID)
	require.NoError(t, err, "emit failure is logged, not surfaced")
	assert.NotEmpty(t, token)
}
