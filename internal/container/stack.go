// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Duskhall Contributors

package container

import (
	"github.com/samber/oops"
)

// AddStack merges a stack of the given quantity into items, bounded by
// capacity slots. The quantity is clamped to stack.Quantity. If a stack
// with the same (ItemID, InstanceID) identity exists, the quantity merges
// into it; otherwise a new slot is appended. Returns ErrCapacityExceeded
// when a new slot would be needed and none is free, leaving items
// untouched. The input slice is never mutated.
func AddStack(items []ItemStack, capacity int, stack ItemStack, quantity int) ([]ItemStack, error) {
	if quantity > stack.Quantity {
		quantity = stack.Quantity
	}
	if quantity <= 0 {
		return nil, oops.Code("INVALID_QUANTITY").
			With("item_id", stack.ItemID.String()).
			With("quantity", quantity).
			Errorf("transfer quantity must be positive")
	}

	out := CloneStacks(items)
	for i := range out {
		if out[i].SameIdentity(stack) {
			out[i].Quantity += quantity
			return out, nil
		}
	}

	if len(out) >= capacity {
		return nil, oops.Code("CAPACITY_EXCEEDED").
			With("item_id", stack.ItemID.String()).
			With("capacity_slots", capacity).
			With("used_slots", len(out)).
			Wrap(ErrCapacityExceeded)
	}

	added := stack.Clone()
	added.Quantity = quantity
	return append(out, added), nil
}

// RemoveStack subtracts the given quantity from the stack matching on
// (ItemID, InstanceID) identity. The quantity is clamped to what the
// matching stack holds; a stack drained to zero is dropped and its slot
// freed. Returns ErrItemNotFound when no stack matches. The input slice
// is never mutated. The second return value is the quantity actually
// removed after clamping.
func RemoveStack(items []ItemStack, stack ItemStack, quantity int) ([]ItemStack, int, error) {
	if quantity <= 0 {
		return nil, 0, oops.Code("INVALID_QUANTITY").
			With("item_id", stack.ItemID.String()).
			With("quantity", quantity).
			Errorf("transfer quantity must be positive")
	}

	out := CloneStacks(items)
	for i := range out {
		if !out[i].SameIdentity(stack) {
			continue
		}
		if quantity > out[i].Quantity {
			quantity = out[i].Quantity
		}
		out[i].Quantity -= quantity
		if out[i].Quantity == 0 {
			out = append(out[:i], out[i+1:]...)
		}
		return out, quantity, nil
	}

	return nil, 0, oops.Code("ITEM_NOT_FOUND").
		With("item_id", stack.ItemID.String()).
		With("instance_id", stack.InstanceID.String()).
		Wrap(ErrItemNotFound)
}
