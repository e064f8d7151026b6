// Package storage defines types and interfaces to support the inventory store.
package storage

import (
	"context"
	"errors"
)

var ErrItemNotFound = errors.New("item not found")

type ReadStorage interface {
	// ListItems returns every item in insertion order.
	// Returned items are copies and may be modified by the caller.
	ListItems(ctx context.Context) ([]Item, error)
}

type Storage interface {
	ReadStorage

	// CreateItem stores a new item built from fields and returns it.
	// The store assigns the ID and both timestamps; any values for
	// those keys in fields are overwritten. Fields may be nil.
	CreateItem(ctx context.Context, fields Item) (Item, error)

	// UpdateItem merges fields into the item with id and returns the result.
	// Keys in fields overwrite existing keys, except for the
	// store-managed keys, which are ignored. The last updated
	// timestamp is always refreshed.
	// ErrItemNotFound is returned if no item has id.
	UpdateItem(ctx context.Context, id string, fields Item) (Item, error)

	// DeleteItem removes the item with id.
	// Deleting an ID that does not exist is not an error.
	DeleteItem(ctx context.Context, id string) error
}
