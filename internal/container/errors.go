// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"errors"
	"fmt"
)

// Error kinds returned by the container core. Callers dispatch on these
// with errors.Is; the API layer maps them to user-visible responses and
// must never match on message text.
var (
	// ErrNotFound is returned when a container or player does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when creating a container whose ID is
	// already taken.
	ErrAlreadyExists = errors.New("already exists")
	// ErrLocked is returned when the container's lock state blocks the
	// actor from opening it.
	ErrLocked = errors.New("container locked")
	// ErrAccessDenied is returned for proximity, ownership, role,
	// grace-period, and sealed-container denials.
	ErrAccessDenied = errors.New("access denied")
	// ErrAlreadyOpen is returned when a player opens a container they
	// already hold a session on.
	ErrAlreadyOpen = errors.New("container already open")
	// ErrSessionInvalid is returned when a mutation or close presents no
	// live session or a non-matching token. The registry does not
	// distinguish the two causes.
	ErrSessionInvalid = errors.New("session invalid")
	// ErrMutationSuppressed is returned when a concurrent duplicate of an
	// in-flight mutation is detected. Callers should not blindly retry.
	ErrMutationSuppressed = errors.New("mutation suppressed")
	// ErrCapacityExceeded is returned when the source or destination slot
	// list is full. No partial transfer occurs.
	ErrCapacityExceeded = errors.New("capacity exceeded")
	// ErrItemNotFound is returned when the requested stack is not in the
	// source list at transfer time.
	ErrItemNotFound = errors.New("item not found")
)

// ValidationError represents an input validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
