package storage

import (
	"time"
)

// Store-managed item keys.
const (
	KeyID            = "id"              // string
	KeyAddedAt       = "added_at"        // string, TimestampFormat
	KeyLastUpdatedAt = "last_updated_at" // string, TimestampFormat
)

// TimestampFormat is the UTC ISO-8601 layout of item timestamps.
// It is fixed width so that timestamps sort lexically.
const TimestampFormat = "2006-01-02T15:04:05.000000Z"

// Item is a freeform inventory record of JSON-compatible values.
type Item map[string]interface{}

// ID returns the item ID or an empty string.
func (i Item) ID() string {
	s, _ := i[KeyID].(string)
	return s
}

// AddedAt returns the raw added timestamp or an empty string.
func (i Item) AddedAt() string {
	s, _ := i[KeyAddedAt].(string)
	return s
}

// LastUpdatedAt returns the raw last updated timestamp or an empty string.
func (i Item) LastUpdatedAt() string {
	s, _ := i[KeyLastUpdatedAt].(string)
	return s
}

// Copy returns a deep copy of i.
// Nested objects and arrays are copied too.
func (i Item) Copy() Item {
	if i == nil {
		return nil
	}
	c := make(Item, len(i))
	for k, v := range i {
		c[k] = copyValue(v)
	}
	return c
}

func copyValue(v interface{}) interface{} {
	switch t := v.(type) {
	case Item:
		return t.Copy()
	case map[string]interface{}:
		return map[string]interface{}(Item(t).Copy())
	case []interface{}:
		if t == nil {
			return t
		}
		c := make([]interface{}, len(t))
		for i := range t {
			c[i] = copyValue(t[i])
		}
		return c
	default:
		return v
	}
}

// IsManagedKey reports whether k is assigned by the store rather than callers.
func IsManagedKey(k string) bool {
	switch k {
	case KeyID, KeyAddedAt, KeyLastUpdatedAt:
		return true
	}
	return false
}

// FormatTimestamp formats t in UTC with TimestampFormat.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampFormat)
}

// ParseTimestamp parses s formatted with TimestampFormat.
func ParseTimestamp(s string) (time.Time, error) {
	return time.Parse(TimestampFormat, s)
}

// NewItem creates a new item from a copy of fields.
// The item gets id and both timestamps set to now.
func NewItem(fields Item, id string, now time.Time) Item {
	item := fields.Copy()
	if item == nil {
		item = make(Item)
	}
	ts := FormatTimestamp(now)
	item[KeyID] = id
	item[KeyAddedAt] = ts
	item[KeyLastUpdatedAt] = ts
	return item
}

// Merge copies fields into item, skipping store-managed keys, then sets
// the last updated timestamp to now. The timestamp never moves backwards,
// even if the clock does.
func Merge(item, fields Item, now time.Time) {
	for k, v := range fields {
		if IsManagedKey(k) {
			continue
		}
		item[k] = copyValue(v)
	}
	now = now.UTC()
	if prev, err := ParseTimestamp(item.LastUpdatedAt()); err == nil && now.Before(prev) {
		now = prev
	}
	item[KeyLastUpdatedAt] = FormatTimestamp(now)
}
