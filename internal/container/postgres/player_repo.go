// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duskhall/duskhall/internal/container"
)

const playerColumns = `id, name, current_room_id, role, is_admin,
	       inventory, inventory_slots, created_at`

// PlayerRepository implements container.PlayerRepository using PostgreSQL.
type PlayerRepository struct {
	pool poolIface
}

// NewPlayerRepository creates a new PlayerRepository.
func NewPlayerRepository(pool poolIface) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

var _ container.PlayerRepository = (*PlayerRepository)(nil)

// Get retrieves a player by ID.
func (r *PlayerRepository) Get(ctx context.Context, id ulid.ULID) (*container.Player, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+playerColumns+`
		FROM players WHERE id = $1
	`, id.String())

	p, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get player").With("id", id.String()).Wrap(err)
	}
	return p, nil
}

// UpdateInventory replaces a player's inventory and returns the new snapshot.
func (r *PlayerRepository) UpdateInventory(ctx context.Context, id ulid.ULID, items []container.ItemStack) (*container.Player, error) {
	itemsJSON, err := marshalStacks(items)
	if err != nil {
		return nil, oops.Code("INVENTORY_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE players SET inventory = $2
		WHERE id = $1
		RETURNING `+playerColumns+`
	`, id.String(), itemsJSON)

	p, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("INVENTORY_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	return p, nil
}

// scanPlayer reads one player row. The caller maps pgx.ErrNoRows.
func scanPlayer(row pgx.Row) (*container.Player, error) {
	var p container.Player
	var idStr string
	var roomIDStr *string
	var inventoryJSON []byte

	err := row.Scan(
		&idStr, &p.Name, &roomIDStr, &p.Role, &p.Admin,
		&inventoryJSON, &p.InventorySlots, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse player id").With("id", idStr).Wrap(err)
	}
	if p.CurrentRoomID, err = parseOptionalULID(roomIDStr, "current_room_id"); err != nil {
		return nil, err
	}
	if p.Inventory, err = unmarshalStacks(inventoryJSON); err != nil {
		return nil, err
	}

	return &p, nil
}
