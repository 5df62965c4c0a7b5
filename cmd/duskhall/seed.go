// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/duskhall/duskhall/internal/container"
	"github.com/duskhall/duskhall/internal/container/postgres"
	"github.com/duskhall/duskhall/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// Well-known IDs so duplicate runs hit the unique constraint instead of
// inserting twice. ULIDs must be 26 Crockford base32 characters.
const (
	seedRoomID      = "01HZN3XS000000000000000000"
	seedChestID     = "01HZN3XS000000000000000001"
	seedCaretakerID = "01HZN3XS000000000000000002"
)

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with starter data",
		Long: `Creates a starter room chest and a caretaker player.
This command is idempotent - it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, cfg *seedConfig) error {
	url, err := databaseURL()
	if err != nil {
		return err
	}

	// Respect SIGINT/SIGTERM via cmd.Context() and cap the total runtime.
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, url)
	if err != nil {
		return err
	}
	defer pool.Close()

	roomID, err := ulid.Parse(seedRoomID)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "parse seed room ID").Wrap(err)
	}
	caretakerID, err := ulid.Parse(seedCaretakerID)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "parse seed caretaker ID").Wrap(err)
	}
	chestID, err := ulid.Parse(seedChestID)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "parse seed chest ID").Wrap(err)
	}

	if err := seedCaretaker(ctx, pool, caretakerID, roomID); err != nil {
		return err
	}

	chest := &container.Container{
		ID:            chestID,
		SourceType:    container.SourceEnvironment,
		RoomID:        &roomID,
		LockState:     container.LockStateUnlocked,
		CapacitySlots: 10,
		Metadata:      map[string]string{},
		CreatedAt:     time.Now().UTC(),
	}

	containerRepo := postgres.NewContainerRepository(pool)
	switch err := containerRepo.Create(ctx, chest); {
	case errors.Is(err, container.ErrAlreadyExists):
		cmd.Println("Starter chest already exists, skipping")
	case err != nil:
		return oops.Code("SEED_FAILED").With("operation", "create starter chest").Wrap(err)
	default:
		cmd.Println("Created starter chest")
	}

	cmd.Println("Seed completed")
	return nil
}

// seedCaretaker inserts the caretaker player directly; the player
// repository deliberately has no Create because players are owned by the
// account system in production.
func seedCaretaker(ctx context.Context, pool *pgxpool.Pool, id, roomID ulid.ULID) error {
	_, err := pool.Exec(ctx, `
		INSERT INTO players (id, name, current_room_id, role, is_admin, inventory, inventory_slots, created_at)
		VALUES ($1, 'Caretaker', $2, 'warden', TRUE, '[]'::jsonb, $3, NOW())
	`, id.String(), roomID.String(), container.DefaultInventorySlots)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			slog.Info("caretaker already exists, skipping")
			return nil
		}
		return oops.Code("SEED_FAILED").With("operation", "create caretaker").Wrap(err)
	}
	return nil
}
