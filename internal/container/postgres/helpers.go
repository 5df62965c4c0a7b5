// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package postgres

import (
	"encoding/json"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/duskhall/duskhall/internal/container"
)

// ulidToStringPtr converts a ULID pointer to a string pointer for SQL
// parameters. Returns nil if the input is nil.
func ulidToStringPtr(id *ulid.ULID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}

// parseOptionalULID parses an optional ULID string pointer into a ULID
// pointer. Returns nil if the input is nil. Wraps parse errors with the
// field name for context.
func parseOptionalULID(strPtr *string, fieldName string) (*ulid.ULID, error) {
	if strPtr == nil {
		return nil, nil
	}
	id, err := ulid.Parse(*strPtr)
	if err != nil {
		return nil, oops.With("operation", "parse "+fieldName).With(fieldName, *strPtr).Wrap(err)
	}
	return &id, nil
}

// marshalStacks serializes item stacks for a JSONB column. A nil slice is
// stored as an empty JSON array so reads never see SQL NULL.
func marshalStacks(items []container.ItemStack) ([]byte, error) {
	if items == nil {
		items = []container.ItemStack{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return nil, oops.With("operation", "marshal item stacks").Wrap(err)
	}
	return data, nil
}

// unmarshalStacks deserializes item stacks from a JSONB column.
func unmarshalStacks(data []byte) ([]container.ItemStack, error) {
	var items []container.ItemStack
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, oops.With("operation", "unmarshal item stacks").Wrap(err)
	}
	return items, nil
}

// marshalMetadata serializes a metadata map for a JSONB column. A nil map
// is stored as an empty JSON object.
func marshalMetadata(meta map[string]string) ([]byte, error) {
	if meta == nil {
		meta = map[string]string{}
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return nil, oops.With("operation", "marshal metadata").Wrap(err)
	}
	return data, nil
}

// unmarshalMetadata deserializes a metadata map from a JSONB column.
func unmarshalMetadata(data []byte) (map[string]string, error) {
	var meta map[string]string
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, oops.With("operation", "unmarshal metadata").Wrap(err)
	}
	return meta, nil
}
