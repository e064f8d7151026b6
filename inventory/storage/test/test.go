// Package test provides a conformance test for inventory storage backends.
package test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/micromdm/nanoinv/inventory/storage"
	"github.com/micromdm/nanoinv/utils/uuid"
)

// NewStorage creates a new, empty storage backend that uses ider
// for item IDs and now for timestamps.
type NewStorage func(ider uuid.IDer, now func() time.Time) storage.Storage

// Clock is a fake clock that advances by Step on every call to Now.
type Clock struct {
	mu   sync.Mutex
	t    time.Time
	Step time.Duration
}

// NewClock creates a new clock starting at t advancing by a second.
func NewClock(t time.Time) *Clock {
	return &Clock{t: t, Step: time.Second}
}

// Now returns the current fake time then advances the clock.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.t
	c.t = c.t.Add(c.Step)
	return t
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// jsonString marshals v for backend-agnostic comparisons.
// Backends may return numbers as float64 or json.Number.
func jsonString(t *testing.T, v interface{}) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func expectJSON(t *testing.T, have, want interface{}) {
	t.Helper()
	if h, w := jsonString(t, have), jsonString(t, want); h != w {
		t.Errorf("have: %s, want: %s", h, w)
	}
}

func listIDs(t *testing.T, s storage.Storage) []string {
	t.Helper()
	items, err := s.ListItems(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID())
	}
	return ids
}

func expectIDs(t *testing.T, s storage.Storage, want ...string) {
	t.Helper()
	if want == nil {
		want = []string{}
	}
	expectJSON(t, listIDs(t, s), want)
}

// TestStorage runs the inventory storage tests against backends created by newStorage.
func TestStorage(t *testing.T, newStorage NewStorage) {
	t.Run("scenario", func(t *testing.T) {
		testScenario(t, newStorage(uuid.NewStaticIDs("AA11", "BB22"), NewClock(epoch).Now))
	})
	t.Run("empty", func(t *testing.T) {
		testEmpty(t, newStorage(uuid.NewUUID(), time.Now))
	})
	t.Run("unique-ids", func(t *testing.T) {
		testUniqueIDs(t, newStorage(uuid.NewUUID(), time.Now))
	})
	t.Run("managed-keys", func(t *testing.T) {
		testManagedKeys(t, newStorage(uuid.NewStaticIDs("AA11"), NewClock(epoch).Now))
	})
	t.Run("merge", func(t *testing.T) {
		testMerge(t, newStorage(uuid.NewStaticIDs("AA11"), NewClock(epoch).Now))
	})
	t.Run("order", func(t *testing.T) {
		testOrder(t, newStorage(uuid.NewStaticIDs("A", "B", "C", "D"), NewClock(epoch).Now))
	})
	t.Run("delete", func(t *testing.T) {
		testDelete(t, newStorage(uuid.NewStaticIDs("A", "B", "C"), NewClock(epoch).Now))
	})
	t.Run("copies", func(t *testing.T) {
		testCopies(t, newStorage(uuid.NewStaticIDs("AA11"), NewClock(epoch).Now))
	})
	t.Run("clock-backwards", func(t *testing.T) {
		c := NewClock(epoch)
		testClockBackwards(t, newStorage(uuid.NewStaticIDs("AA11"), c.Now), c)
	})
	t.Run("concurrent", func(t *testing.T) {
		testConcurrent(t, newStorage(uuid.NewUUID(), time.Now))
	})
}

func testScenario(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	created, err := s.CreateItem(ctx, storage.Item{"name": "widget", "qty": 5})
	if err != nil {
		t.Fatal(err)
	}

	id := created.ID()
	if id == "" {
		t.Fatal("empty ID")
	}
	if created.AddedAt() != created.LastUpdatedAt() {
		t.Errorf("timestamps differ on create: %s != %s", created.AddedAt(), created.LastUpdatedAt())
	}
	if _, err = storage.ParseTimestamp(created.AddedAt()); err != nil {
		t.Errorf("invalid timestamp: %v", err)
	}
	expectJSON(t, created, storage.Item{
		storage.KeyID:            "AA11",
		storage.KeyAddedAt:       "2024-05-01T12:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2024-05-01T12:00:00.000000Z",
		"name":                   "widget",
		"qty":                    5,
	})

	updated, err := s.UpdateItem(ctx, id, storage.Item{"qty": 10})
	if err != nil {
		t.Fatal(err)
	}
	expectJSON(t, updated, storage.Item{
		storage.KeyID:            "AA11",
		storage.KeyAddedAt:       "2024-05-01T12:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2024-05-01T12:00:01.000000Z",
		"name":                   "widget",
		"qty":                    10,
	})
	if !(updated.LastUpdatedAt() > created.LastUpdatedAt()) {
		t.Errorf("last updated not later: %s <= %s", updated.LastUpdatedAt(), created.LastUpdatedAt())
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expectJSON(t, items, []storage.Item{updated})

	if err = s.DeleteItem(ctx, id); err != nil {
		t.Fatal(err)
	}

	expectIDs(t, s)

	_, err = s.UpdateItem(ctx, id, storage.Item{})
	if !errors.Is(err, storage.ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, have: %v", err)
	}
}

func testEmpty(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if items == nil {
		t.Error("expected empty, non-nil list")
	}
	if len(items) != 0 {
		t.Errorf("expected no items, have %d", len(items))
	}

	_, err = s.UpdateItem(ctx, "missing", storage.Item{"a": "b"})
	if !errors.Is(err, storage.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, have: %v", err)
	}

	if err = s.DeleteItem(ctx, "missing"); err != nil {
		t.Errorf("delete of missing item: %v", err)
	}

	item, err := s.CreateItem(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := len(item), 3; have != want {
		t.Errorf("nil fields: have %d keys, want %d", have, want)
	}
}

func testUniqueIDs(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		item, err := s.CreateItem(ctx, storage.Item{"n": i})
		if err != nil {
			t.Fatal(err)
		}
		if item.ID() == "" {
			t.Fatal("empty ID")
		}
		if _, ok := seen[item.ID()]; ok {
			t.Fatalf("duplicate ID: %s", item.ID())
		}
		seen[item.ID()] = struct{}{}
	}
}

func testManagedKeys(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	item, err := s.CreateItem(ctx, storage.Item{
		storage.KeyID:            "caller-id",
		storage.KeyAddedAt:       "2000-01-01T00:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2000-01-01T00:00:00.000000Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	if have, want := item.ID(), "AA11"; have != want {
		t.Errorf("caller ID not overwritten: have: %v, want: %v", have, want)
	}
	if have, want := item.AddedAt(), "2024-05-01T12:00:00.000000Z"; have != want {
		t.Errorf("caller added_at not overwritten: have: %v, want: %v", have, want)
	}

	// update ignores managed keys but still refreshes the timestamp
	updated, err := s.UpdateItem(ctx, "AA11", storage.Item{
		storage.KeyID:            "other-id",
		storage.KeyAddedAt:       "2000-01-01T00:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2000-01-01T00:00:00.000000Z",
	})
	if err != nil {
		t.Fatal(err)
	}
	expectJSON(t, updated, storage.Item{
		storage.KeyID:            "AA11",
		storage.KeyAddedAt:       "2024-05-01T12:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2024-05-01T12:00:01.000000Z",
	})

	_, err = s.UpdateItem(ctx, "other-id", storage.Item{})
	if !errors.Is(err, storage.ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound for caller ID, have: %v", err)
	}
}

func testMerge(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateItem(ctx, storage.Item{
		"type":        "furniture",
		"description": "desk",
		"state":       "in use",
		"attrs":       map[string]interface{}{"legs": 4, "color": "oak"},
	})
	if err != nil {
		t.Fatal(err)
	}

	var prev string
	for i, fields := range []storage.Item{
		{"state": "broken"},
		{"attrs": map[string]interface{}{"legs": 3}},
		{"note": nil, "tags": []interface{}{"office", 2}},
		{},
	} {
		updated, err := s.UpdateItem(ctx, "AA11", fields)
		if err != nil {
			t.Fatal(err)
		}
		if updated.LastUpdatedAt() < prev {
			t.Errorf("update %d: last updated moved backwards", i)
		}
		if updated.LastUpdatedAt() < updated.AddedAt() {
			t.Errorf("update %d: last updated before added", i)
		}
		prev = updated.LastUpdatedAt()
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// nested objects are replaced, not merged
	expectJSON(t, items, []storage.Item{{
		storage.KeyID:            "AA11",
		storage.KeyAddedAt:       "2024-05-01T12:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2024-05-01T12:00:04.000000Z",
		"type":                   "furniture",
		"description":            "desk",
		"state":                  "broken",
		"attrs":                  map[string]interface{}{"legs": 3},
		"note":                   nil,
		"tags":                   []interface{}{"office", 2},
	}})
}

func testOrder(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, err := s.CreateItem(ctx, storage.Item{"n": i}); err != nil {
			t.Fatal(err)
		}
	}
	expectIDs(t, s, "A", "B", "C", "D")

	for _, id := range []string{"C", "A", "D"} {
		if _, err := s.UpdateItem(ctx, id, storage.Item{"touched": true}); err != nil {
			t.Fatal(err)
		}
	}
	expectIDs(t, s, "A", "B", "C", "D")

	if err := s.DeleteItem(ctx, "B"); err != nil {
		t.Fatal(err)
	}
	expectIDs(t, s, "A", "C", "D")
}

func testDelete(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := s.CreateItem(ctx, storage.Item{"n": i}); err != nil {
			t.Fatal(err)
		}
	}

	before, err := s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if err = s.DeleteItem(ctx, "B"); err != nil {
			t.Fatalf("delete %d: %v", i, err)
		}
		expectIDs(t, s, "A", "C")
	}

	after, err := s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expectJSON(t, after, []storage.Item{before[0], before[2]})

	if err = s.DeleteItem(ctx, ""); err != nil {
		t.Fatal(err)
	}
	expectIDs(t, s, "A", "C")
}

func testCopies(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	fields := storage.Item{"name": "widget", "attrs": map[string]interface{}{"color": "red"}}
	created, err := s.CreateItem(ctx, fields)
	if err != nil {
		t.Fatal(err)
	}

	// none of these may change what is stored
	fields["name"] = "changed"
	fields["attrs"].(map[string]interface{})["color"] = "changed"
	created["name"] = "changed"
	items, err := s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	items[0]["name"] = "changed"
	delete(items[0], storage.KeyID)

	items, err = s.ListItems(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expectJSON(t, items, []storage.Item{{
		storage.KeyID:            "AA11",
		storage.KeyAddedAt:       "2024-05-01T12:00:00.000000Z",
		storage.KeyLastUpdatedAt: "2024-05-01T12:00:00.000000Z",
		"name":                   "widget",
		"attrs":                  map[string]interface{}{"color": "red"},
	}})
}

func testClockBackwards(t *testing.T, s storage.Storage, c *Clock) {
	ctx := context.Background()

	if _, err := s.CreateItem(ctx, storage.Item{}); err != nil {
		t.Fatal(err)
	}
	updated, err := s.UpdateItem(ctx, "AA11", storage.Item{"a": 1})
	if err != nil {
		t.Fatal(err)
	}

	c.Set(epoch.Add(-time.Hour))

	again, err := s.UpdateItem(ctx, "AA11", storage.Item{"a": 2})
	if err != nil {
		t.Fatal(err)
	}
	if have, want := again.LastUpdatedAt(), updated.LastUpdatedAt(); have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
	if have, want := again.AddedAt(), "2024-05-01T12:00:00.000000Z"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}
}

func testConcurrent(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	const workers = 8
	const perWorker = 25

	errs := make(chan error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				item, err := s.CreateItem(ctx, storage.Item{"worker": w, "n": i})
				if err != nil {
					errs <- err
					return
				}
				if _, err = s.UpdateItem(ctx, item.ID(), storage.Item{"n": i + 1}); err != nil {
					errs <- fmt.Errorf("update %s: %w", item.ID(), err)
					return
				}
				if _, err = s.ListItems(ctx); err != nil {
					errs <- err
					return
				}
				// delete every other item we created
				if i%2 == 0 {
					if err = s.DeleteItem(ctx, item.ID()); err != nil {
						errs <- err
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	ids := listIDs(t, s)
	if have, want := len(ids), workers*(perWorker/2); have != want {
		t.Errorf("have %d items, want %d", have, want)
	}
	seen := make(map[string]struct{})
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			t.Errorf("duplicate ID: %s", id)
		}
		seen[id] = struct{}{}
	}
}
