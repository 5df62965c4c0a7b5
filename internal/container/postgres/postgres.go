// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

// Package postgres provides PostgreSQL-backed implementations of the
// container repositories.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// poolIface abstracts the pgx pool operations the repositories need.
// Satisfied by both *pgxpool.Pool and pgxmock.PgxPoolIface, which keeps
// unit tests off a live database.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
