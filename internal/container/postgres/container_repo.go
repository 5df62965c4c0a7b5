// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duskhall/duskhall/internal/container"
)

const containerColumns = `id, source_type, owner_id, room_id, entity_id, lock_state,
	       capacity_slots, weight_limit, items, allowed_roles, metadata, created_at`

// ContainerRepository implements container.ContainerRepository using PostgreSQL.
type ContainerRepository struct {
	pool poolIface
}

// NewContainerRepository creates a new ContainerRepository.
func NewContainerRepository(pool poolIface) *ContainerRepository {
	return &ContainerRepository{pool: pool}
}

var _ container.ContainerRepository = (*ContainerRepository)(nil)

// Get retrieves a container by ID.
func (r *ContainerRepository) Get(ctx context.Context, id ulid.ULID) (*container.Container, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+containerColumns+`
		FROM containers WHERE id = $1
	`, id.String())

	c, err := scanContainer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	if err != nil {
		return nil, oops.With("operation", "get container").With("id", id.String()).Wrap(err)
	}
	return c, nil
}

// Create persists a new container.
func (r *ContainerRepository) Create(ctx context.Context, c *container.Container) error {
	itemsJSON, err := marshalStacks(c.Items)
	if err != nil {
		return oops.Code("CONTAINER_CREATE_FAILED").With("id", c.ID.String()).Wrap(err)
	}
	metaJSON, err := marshalMetadata(c.Metadata)
	if err != nil {
		return oops.Code("CONTAINER_CREATE_FAILED").With("id", c.ID.String()).Wrap(err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO containers (
			id, source_type, owner_id, room_id, entity_id, lock_state,
			capacity_slots, weight_limit, items, allowed_roles, metadata, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		c.ID.String(),
		string(c.SourceType),
		ulidToStringPtr(c.OwnerID),
		ulidToStringPtr(c.RoomID),
		ulidToStringPtr(c.EntityID),
		string(c.LockState),
		c.CapacitySlots,
		c.WeightLimit,
		itemsJSON,
		c.AllowedRoles,
		metaJSON,
		c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("CONTAINER_EXISTS").With("id", c.ID.String()).Wrap(container.ErrAlreadyExists)
		}
		return oops.Code("CONTAINER_CREATE_FAILED").With("id", c.ID.String()).Wrap(err)
	}
	return nil
}

// Update applies a partial update and returns the new snapshot. Only the
// non-nil fields of update are written.
func (r *ContainerRepository) Update(ctx context.Context, id ulid.ULID, update container.ContainerUpdate) (*container.Container, error) {
	set := make([]string, 0, 3)
	args := []any{id.String()}

	if update.Items != nil {
		itemsJSON, err := marshalStacks(*update.Items)
		if err != nil {
			return nil, oops.Code("CONTAINER_UPDATE_FAILED").With("id", id.String()).Wrap(err)
		}
		args = append(args, itemsJSON)
		set = append(set, fmt.Sprintf("items = $%d", len(args)))
	}
	if update.LockState != nil {
		args = append(args, string(*update.LockState))
		set = append(set, fmt.Sprintf("lock_state = $%d", len(args)))
	}
	if update.Metadata != nil {
		metaJSON, err := marshalMetadata(*update.Metadata)
		if err != nil {
			return nil, oops.Code("CONTAINER_UPDATE_FAILED").With("id", id.String()).Wrap(err)
		}
		args = append(args, metaJSON)
		set = append(set, fmt.Sprintf("metadata = $%d", len(args)))
	}

	if len(set) == 0 {
		return r.Get(ctx, id)
	}

	row := r.pool.QueryRow(ctx, `
		UPDATE containers SET `+strings.Join(set, ", ")+`
		WHERE id = $1
		RETURNING `+containerColumns+`
	`, args...)

	c, err := scanContainer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CONTAINER_UPDATE_FAILED").With("id", id.String()).Wrap(err)
	}
	return c, nil
}

// Delete removes a container by ID.
func (r *ContainerRepository) Delete(ctx context.Context, id ulid.ULID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM containers WHERE id = $1`, id.String())
	if err != nil {
		return oops.With("operation", "delete container").With("id", id.String()).Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.With("id", id.String()).Wrap(container.ErrNotFound)
	}
	return nil
}

// ListAtRoom returns all containers located in a room, newest first.
func (r *ContainerRepository) ListAtRoom(ctx context.Context, roomID ulid.ULID) ([]*container.Container, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+containerColumns+`
		FROM containers WHERE room_id = $1 ORDER BY created_at DESC
	`, roomID.String())
	if err != nil {
		return nil, oops.With("operation", "list containers at room").With("room_id", roomID.String()).Wrap(err)
	}
	defer rows.Close()

	var containers []*container.Container
	for rows.Next() {
		c, err := scanContainer(rows)
		if err != nil {
			return nil, oops.With("operation", "scan container row").With("room_id", roomID.String()).Wrap(err)
		}
		containers = append(containers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate containers").With("room_id", roomID.String()).Wrap(err)
	}
	return containers, nil
}

// scanContainer reads one container row. The caller maps pgx.ErrNoRows.
func scanContainer(row pgx.Row) (*container.Container, error) {
	var c container.Container
	var idStr, sourceType, lockState string
	var ownerIDStr, roomIDStr, entityIDStr *string
	var itemsJSON, metaJSON []byte

	err := row.Scan(
		&idStr, &sourceType, &ownerIDStr, &roomIDStr, &entityIDStr, &lockState,
		&c.CapacitySlots, &c.WeightLimit, &itemsJSON, &c.AllowedRoles, &metaJSON, &c.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ID, err = ulid.Parse(idStr)
	if err != nil {
		return nil, oops.With("operation", "parse container id").With("id", idStr).Wrap(err)
	}
	c.SourceType = container.SourceType(sourceType)
	c.LockState = container.LockState(lockState)

	if c.OwnerID, err = parseOptionalULID(ownerIDStr, "owner_id"); err != nil {
		return nil, err
	}
	if c.RoomID, err = parseOptionalULID(roomIDStr, "room_id"); err != nil {
		return nil, err
	}
	if c.EntityID, err = parseOptionalULID(entityIDStr, "entity_id"); err != nil {
		return nil, err
	}

	if c.Items, err = unmarshalStacks(itemsJSON); err != nil {
		return nil, err
	}
	if c.Metadata, err = unmarshalMetadata(metaJSON); err != nil {
		return nil, err
	}

	return &c, nil
}
