// Package kv implements an inventory storage backend using a key-value store.
package kv

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/micromdm/nanoinv/inventory/storage"
	"github.com/micromdm/nanoinv/utils/kv"
	"github.com/micromdm/nanoinv/utils/uuid"
)

const (
	keyPfxItem = "item."

	// JSON array of item IDs in insertion order.
	keyIndex = "index"
)

// KV is an inventory storage backend using a key-value store.
// Each operation holds a lock for all of its bucket accesses so
// operations are atomic as long as nothing else writes to the bucket.
type KV struct {
	mu sync.Mutex
	b  kv.Bucket

	ider uuid.IDer
	now  func() time.Time
}

// Option configures the key-value backend.
type Option func(*KV)

// WithIDer sets the item ID generator.
func WithIDer(ider uuid.IDer) Option {
	return func(s *KV) {
		s.ider = ider
	}
}

// WithNow sets the clock used for item timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *KV) {
		s.now = now
	}
}

// New creates a new inventory storage backend using b.
func New(b kv.Bucket, opts ...Option) *KV {
	s := &KV{
		b:    b,
		ider: uuid.NewUUID(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// unmarshal decodes JSON preserving numbers as json.Number.
func unmarshal(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func (s *KV) getIndex(ctx context.Context) ([]string, error) {
	jsonIndex, err := s.b.Get(ctx, keyIndex)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get index: %w", err)
	}
	var ids []string
	if err = json.Unmarshal(jsonIndex, &ids); err != nil {
		return nil, fmt.Errorf("unmarshal index: %w", err)
	}
	return ids, nil
}

func (s *KV) getItem(ctx context.Context, id string) (storage.Item, error) {
	jsonItem, err := s.b.Get(ctx, keyPfxItem+id)
	if errors.Is(err, kv.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", storage.ErrItemNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get item %s: %w", id, err)
	}
	var item storage.Item
	if err = unmarshal(jsonItem, &item); err != nil {
		return nil, fmt.Errorf("unmarshal item %s: %w", id, err)
	}
	return item, nil
}

// ListItems returns all items in insertion order.
func (s *KV) ListItems(ctx context.Context) ([]storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.getIndex(ctx)
	if err != nil {
		return nil, err
	}

	r := make([]storage.Item, 0, len(ids))
	for _, id := range ids {
		item, err := s.getItem(ctx, id)
		if errors.Is(err, storage.ErrItemNotFound) {
			continue
		} else if err != nil {
			return r, err
		}
		r = append(r, item)
	}
	return r, nil
}

// CreateItem stores a new item built from fields and appends it to the index.
func (s *KV) CreateItem(ctx context.Context, fields storage.Item) (storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.getIndex(ctx)
	if err != nil {
		return nil, err
	}

	item := storage.NewItem(fields, s.ider.ID(), s.now())

	jsonItem, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}

	jsonIndex, err := json.Marshal(append(ids, item.ID()))
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}

	err = kv.SetMap(ctx, s.b, map[string][]byte{
		keyPfxItem + item.ID(): jsonItem,
		keyIndex:               jsonIndex,
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateItem merges fields into the stored item with id.
func (s *KV) UpdateItem(ctx context.Context, id string, fields storage.Item) (storage.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.getItem(ctx, id)
	if err != nil {
		return nil, err
	}

	storage.Merge(item, fields, s.now())

	jsonItem, err := json.Marshal(item)
	if err != nil {
		return nil, fmt.Errorf("marshal item: %w", err)
	}

	if err = s.b.Set(ctx, keyPfxItem+id, jsonItem); err != nil {
		return nil, fmt.Errorf("set item %s: %w", id, err)
	}

	return item, nil
}

// DeleteItem removes the item with id and drops it from the index.
func (s *KV) DeleteItem(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids, err := s.getIndex(ctx)
	if err != nil {
		return err
	}

	kept := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			kept = append(kept, v)
		}
	}

	if len(kept) != len(ids) {
		jsonIndex, err := json.Marshal(kept)
		if err != nil {
			return fmt.Errorf("marshal index: %w", err)
		}
		if err = s.b.Set(ctx, keyIndex, jsonIndex); err != nil {
			return fmt.Errorf("set index: %w", err)
		}
	}

	return kv.DeleteSlice(ctx, s.b, []string{keyPfxItem + id})
}
