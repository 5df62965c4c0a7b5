// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duskhall/duskhall/internal/container"
)

var playerRowColumns = []string{
	"id", "name", "current_room_id", "role", "is_admin",
	"inventory", "inventory_slots", "created_at",
}

func TestPlayerRepository_Get(t *testing.T) {
	id := ulid.MustParse("01HQ1234567890ABCDEFGH0401")
	roomID := ulid.MustParse("01HQ1234567890ABCDEFGH0301")
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("found", func(t *testing.T) {
		mock := newMockPool(t)
		inventory := testStacks(t)
		roomStr := roomID.String()
		rows := pgxmock.NewRows(playerRowColumns).AddRow(
			id.String(), "Vex", &roomStr, "guild:smith", false,
			mustJSON(t, inventory), 20, createdAt,
		)
		mock.ExpectQuery(`FROM players WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(rows)

		repo := NewPlayerRepository(mock)
		got, err := repo.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "Vex", got.Name)
		assert.Equal(t, "guild:smith", got.Role)
		assert.False(t, got.Admin)
		require.NotNil(t, got.CurrentRoomID)
		assert.Equal(t, roomID, *got.CurrentRoomID)
		assert.Equal(t, inventory, got.Inventory)
		assert.Equal(t, 20, got.InventorySlots)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM players WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnRows(pgxmock.NewRows(playerRowColumns))

		repo := NewPlayerRepository(mock)
		_, err := repo.Get(context.Background(), id)
		assert.ErrorIs(t, err, container.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`FROM players WHERE id = \$1`).
			WithArgs(id.String()).
			WillReturnError(errors.New("connection refused"))

		repo := NewPlayerRepository(mock)
		_, err := repo.Get(context.Background(), id)
		require.Error(t, err)
		assert.NotErrorIs(t, err, container.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPlayerRepository_UpdateInventory(t *testing.T) {
	id := ulid.MustParse("01HQ1234567890ABCDEFGH0401")
	createdAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("success", func(t *testing.T) {
		mock := newMockPool(t)
		inventory := testStacks(t)
		rows := pgxmock.NewRows(playerRowColumns).AddRow(
			id.String(), "Vex", nil, "warden", false,
			mustJSON(t, inventory), 20, createdAt,
		)
		mock.ExpectQuery(`UPDATE players SET inventory = \$2`).
			WithArgs(id.String(), mustJSON(t, inventory)).
			WillReturnRows(rows)

		repo := NewPlayerRepository(mock)
		got, err := repo.UpdateInventory(context.Background(), id, inventory)
		require.NoError(t, err)
		assert.Equal(t, inventory, got.Inventory)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty inventory stored as empty array", func(t *testing.T) {
		mock := newMockPool(t)
		rows := pgxmock.NewRows(playerRowColumns).AddRow(
			id.String(), "Vex", nil, "warden", false,
			mustJSON(t, []container.ItemStack{}), 20, createdAt,
		)
		mock.ExpectQuery(`UPDATE players SET inventory = \$2`).
			WithArgs(id.String(), []byte(`[]`)).
			WillReturnRows(rows)

		repo := NewPlayerRepository(mock)
		got, err := repo.UpdateInventory(context.Background(), id, nil)
		require.NoError(t, err)
		assert.Empty(t, got.Inventory)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock := newMockPool(t)
		mock.ExpectQuery(`UPDATE players SET inventory = \$2`).
			WithArgs(id.String(), []byte(`[]`)).
			WillReturnRows(pgxmock.NewRows(playerRowColumns))

		repo := NewPlayerRepository(mock)
		_, err := repo.UpdateInventory(context.Background(), id, nil)
		assert.ErrorIs(t, err, container.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
