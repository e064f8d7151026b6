// Package inmem implements an in-memory inventory storage backend.
package inmem

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/micromdm/nanoinv/inventory/storage"
	"github.com/micromdm/nanoinv/utils/uuid"
)

// InMem is an in-memory inventory storage backend.
// Items are kept in insertion order. A single lock makes every
// operation atomic with respect to every other.
type InMem struct {
	mu    sync.RWMutex
	items []storage.Item

	ider uuid.IDer
	now  func() time.Time
}

// Option configures the in-memory backend.
type Option func(*InMem)

// WithIDer sets the item ID generator.
func WithIDer(ider uuid.IDer) Option {
	return func(s *InMem) {
		s.ider = ider
	}
}

// WithNow sets the clock used for item timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *InMem) {
		s.now = now
	}
}

// New creates a new, empty in-memory inventory storage backend.
func New(opts ...Option) *InMem {
	s := &InMem{
		ider: uuid.NewUUID(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListItems returns copies of all items in insertion order.
func (s *InMem) ListItems(_ context.Context) ([]storage.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r := make([]storage.Item, len(s.items))
	for i := range s.items {
		r[i] = s.items[i].Copy()
	}
	return r, nil
}

// CreateItem appends a new item built from fields.
func (s *InMem) CreateItem(_ context.Context, fields storage.Item) (storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item := storage.NewItem(fields, s.ider.ID(), s.now())
	s.items = append(s.items, item)
	return item.Copy(), nil
}

// UpdateItem merges fields into the item with id.
func (s *InMem) UpdateItem(_ context.Context, id string, fields storage.Item) (storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.ID() != id {
			continue
		}
		storage.Merge(item, fields, s.now())
		return item.Copy(), nil
	}
	return nil, fmt.Errorf("%w: %s", storage.ErrItemNotFound, id)
}

// DeleteItem removes any items with id.
func (s *InMem) DeleteItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.items[:0]
	for _, item := range s.items {
		if item.ID() != id {
			kept = append(kept, item)
		}
	}
	// drop references in the now unused tail
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = nil
	}
	s.items = kept
	return nil
}
