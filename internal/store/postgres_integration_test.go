// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/duskhall/duskhall/internal/store"
)

// setupPostgres starts a PostgreSQL container, runs migrations, and
// returns a connected pool.
func setupPostgres() (*pgxpool.Pool, func(), error) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("duskhall_test"),
		postgres.WithUsername("duskhall"),
		postgres.WithPassword("duskhall"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, nil, err
	}

	migrator, err := store.NewMigrator(connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, nil, err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		_ = pgContainer.Terminate(ctx)
		return nil, nil, err
	}
	_ = migrator.Close()

	pool, err := store.Connect(ctx, connStr)
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup, nil
}

var _ = Describe("EventLog", func() {
	var pool *pgxpool.Pool
	var cleanup func()

	BeforeEach(func() {
		var err error
		pool, cleanup, err = setupPostgres()
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		cleanup()
	})

	Describe("Emit", func() {
		It("stores events correctly", func() {
			ctx := context.Background()
			log := store.NewEventLog(pool)

			err := log.Emit(ctx, "container:test", "open", []byte(`{"player_id":"p1"}`))
			Expect(err).NotTo(HaveOccurred())

			events, err := log.Replay(ctx, "container:test", ulid.ULID{}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(1))
			Expect(events[0].Type).To(Equal("open"))
			Expect(events[0].Stream).To(Equal("container:test"))
		})
	})

	Describe("Replay", func() {
		const stream = "container:replay-test"

		BeforeEach(func() {
			ctx := context.Background()
			log := store.NewEventLog(pool)
			for range 5 {
				err := log.Emit(ctx, stream, "transfer_to_container", []byte(`{"quantity":1}`))
				Expect(err).NotTo(HaveOccurred())
				time.Sleep(time.Millisecond) // keep ULIDs strictly ordered
			}
		})

		It("replays all events from beginning", func() {
			log := store.NewEventLog(pool)
			events, err := log.Replay(context.Background(), stream, ulid.ULID{}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(5))
		})

		It("replays only events after the given ID", func() {
			ctx := context.Background()
			log := store.NewEventLog(pool)
			all, err := log.Replay(ctx, stream, ulid.ULID{}, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(5))

			tail, err := log.Replay(ctx, stream, all[1].ID, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(tail).To(HaveLen(3))
			Expect(tail[0].ID).To(Equal(all[2].ID))
		})

		It("respects the limit", func() {
			log := store.NewEventLog(pool)
			events, err := log.Replay(context.Background(), stream, ulid.ULID{}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(events).To(HaveLen(2))
		})
	})
})
