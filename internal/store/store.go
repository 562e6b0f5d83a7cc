// Package store persists typed values into named durable slots.
package store

import (
	"context"
	"errors"
	"fmt"
)

// Slot names used by the SDK.
const (
	SlotActivityState = "ActivityState"
	SlotPackageQueue  = "PackageQueue"
	SlotAttribution   = "Attribution"
)

// ErrNotFound is returned by Load when a slot has never been written.
// A fresh install reads every slot as not found.
var ErrNotFound = errors.New("slot not found")

// Store reads and writes values to named slots.
// Save replaces the slot atomically: readers never see a partial write.
type Store interface {
	Load(ctx context.Context, slot string, v any) error
	Save(ctx context.Context, slot string, v any) error
	Delete(ctx context.Context, slot string) error
}

// Read loads slot into a new T. It returns nil, nil when the slot is absent.
func Read[T any](ctx context.Context, s Store, slot string) (*T, error) {
	var v T
	if err := s.Load(ctx, slot, &v); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

// Write is the Save counterpart of Read.
func Write[T any](ctx context.Context, s Store, slot string, v *T) error {
	if v == nil {
		return fmt.Errorf("write %s: nil value", slot)
	}
	return s.Save(ctx, slot, v)
}

func validSlot(slot string) error {
	if slot == "" {
		return errors.New("slot name is required")
	}
	for _, r := range slot {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-', r == '.':
		default:
			return fmt.Errorf("invalid slot name %q", slot)
		}
	}
	return nil
}
