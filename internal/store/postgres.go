// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

// Package store provides storage implementations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/duskhall/duskhall/internal/container"
)

// connectMaxRetries bounds the ping attempts made while waiting for the
// database to come up, e.g. during a compose startup race.
const connectMaxRetries = 5

// Connect opens a pgx pool and verifies connectivity with exponential
// backoff. The pool is closed again if the database never answers.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, oops.Code("DATABASE_CONFIG_INVALID").With("operation", "create pool").Wrap(err)
	}

	backoff := retry.WithMaxRetries(connectMaxRetries, retry.NewExponential(500*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("DATABASE_UNREACHABLE").With("operation", "ping database").Wrap(err)
	}

	return pool, nil
}

// poolIface abstracts the pgx pool operations the event log needs.
// Satisfied by both *pgxpool.Pool and pgxmock.PgxPoolIface.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Event is one row of the durable event journal.
type Event struct {
	ID        ulid.ULID
	Stream    string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventLog is a PostgreSQL-backed event journal. It satisfies
// container.EventEmitter so coordinator operations land in durable
// storage, and supports replaying a stream for catch-up consumers.
type EventLog struct {
	pool poolIface
}

// NewEventLog creates an EventLog on top of an existing pool.
func NewEventLog(pool poolIface) *EventLog {
	return &EventLog{pool: pool}
}

var _ container.EventEmitter = (*EventLog)(nil)

// Emit appends an event to a stream. The event ID is generated here so
// emitters never have to coordinate ordering.
func (l *EventLog) Emit(ctx context.Context, stream, eventType string, payload []byte) error {
	id := ulid.Make()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO events (id, stream, type, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		id.String(), stream, eventType, payload, time.Now().UTC(),
	)
	if err != nil {
		return oops.Code("EVENT_APPEND_FAILED").
			With("stream", stream).
			With("type", eventType).
			Wrap(err)
	}
	return nil
}

// Replay returns up to limit events from a stream after the given ID.
// Pass the zero ULID to read from the beginning.
func (l *EventLog) Replay(ctx context.Context, stream string, afterID ulid.ULID, limit int) ([]Event, error) {
	var rows pgx.Rows
	var err error

	if afterID.Compare(ulid.ULID{}) == 0 {
		rows, err = l.pool.Query(ctx,
			`SELECT id, stream, type, payload, created_at
			 FROM events WHERE stream = $1 ORDER BY id LIMIT $2`,
			stream, limit)
	} else {
		rows, err = l.pool.Query(ctx,
			`SELECT id, stream, type, payload, created_at
			 FROM events WHERE stream = $1 AND id > $2 ORDER BY id LIMIT $3`,
			stream, afterID.String(), limit)
	}
	if err != nil {
		return nil, oops.Code("EVENT_REPLAY_FAILED").With("stream", stream).Wrap(err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var idStr string
		if err := rows.Scan(&idStr, &e.Stream, &e.Type, &e.Payload, &e.CreatedAt); err != nil {
			return nil, oops.Code("EVENT_REPLAY_FAILED").With("operation", "scan event row").With("stream", stream).Wrap(err)
		}
		e.ID, err = ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("EVENT_REPLAY_FAILED").With("operation", "parse event id").With("id", idStr).Wrap(err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("EVENT_REPLAY_FAILED").With("stream", stream).Wrap(err)
	}

	return events, nil
}
