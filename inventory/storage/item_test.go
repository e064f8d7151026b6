package storage

import (
	"reflect"
	"testing"
	"time"
)

func TestTimestampFormat(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("CET", 3600))
	s := FormatTimestamp(ts)
	if have, want := s, "2024-03-09T13:05:07.123456Z"; have != want {
		t.Errorf("have: %v, want: %v", have, want)
	}

	parsed, err := ParseTimestamp(s)
	if err != nil {
		t.Fatal(err)
	}
	if have, want := parsed, ts.Truncate(time.Microsecond).UTC(); !have.Equal(want) {
		t.Errorf("have: %v, want: %v", have, want)
	}
}

func TestIsManagedKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{KeyID, true},
		{KeyAddedAt, true},
		{KeyLastUpdatedAt, true},
		{"name", false},
		{"ID", false},
		{"", false},
	}

	for _, test := range tests {
		t.Run(test.key, func(t *testing.T) {
			if have := IsManagedKey(test.key); have != test.expected {
				t.Errorf("Expected %q managed to be %v, but got %v", test.key, test.expected, have)
			}
		})
	}
}

func TestNewItem(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	fields := Item{
		"name":     "widget",
		KeyID:      "caller-id",
		KeyAddedAt: "yesterday",
	}

	item := NewItem(fields, "AA11", now)

	if have, want := item.ID(), "AA11"; have != want {
		t.Errorf("ID: have: %v, want: %v", have, want)
	}
	if have, want := item.AddedAt(), "2024-01-02T03:04:05.000000Z"; have != want {
		t.Errorf("added: have: %v, want: %v", have, want)
	}
	if have, want := item.LastUpdatedAt(), item.AddedAt(); have != want {
		t.Errorf("last updated: have: %v, want: %v", have, want)
	}
	if have, want := item["name"], "widget"; have != want {
		t.Errorf("name: have: %v, want: %v", have, want)
	}

	// fields must not be modified
	if have, want := fields[KeyID], "caller-id"; have != want {
		t.Errorf("fields modified: have: %v, want: %v", have, want)
	}

	empty := NewItem(nil, "BB22", now)
	if have, want := len(empty), 3; have != want {
		t.Errorf("nil fields: have %d keys, want %d", have, want)
	}
}

func TestMerge(t *testing.T) {
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	item := NewItem(Item{"name": "widget", "qty": 5.0}, "AA11", created)

	Merge(item, Item{"qty": 10.0, "color": "red", KeyID: "other", KeyAddedAt: "x"}, created.Add(time.Minute))

	expected := Item{
		KeyID:            "AA11",
		KeyAddedAt:       "2024-01-02T03:04:05.000000Z",
		KeyLastUpdatedAt: "2024-01-02T03:05:05.000000Z",
		"name":           "widget",
		"qty":            10.0,
		"color":          "red",
	}
	if !reflect.DeepEqual(item, expected) {
		t.Errorf("have: %v, want: %v", item, expected)
	}

	// clock moved backwards
	Merge(item, nil, created)
	if have, want := item.LastUpdatedAt(), "2024-01-02T03:05:05.000000Z"; have != want {
		t.Errorf("last updated moved backwards: have: %v, want: %v", have, want)
	}
}

func TestCopy(t *testing.T) {
	item := Item{
		"tags":  []interface{}{"a", map[string]interface{}{"b": "c"}},
		"attrs": map[string]interface{}{"weight": 1.5},
	}
	c := item.Copy()
	if !reflect.DeepEqual(item, c) {
		t.Fatalf("copy not equal: have: %v, want: %v", c, item)
	}

	c["tags"].([]interface{})[0] = "z"
	c["tags"].([]interface{})[1].(map[string]interface{})["b"] = "z"
	c["attrs"].(map[string]interface{})["weight"] = 2.0

	if have, want := item["tags"].([]interface{})[0], "a"; have != want {
		t.Errorf("array aliased: have: %v, want: %v", have, want)
	}
	if have, want := item["tags"].([]interface{})[1].(map[string]interface{})["b"], "c"; have != want {
		t.Errorf("nested object aliased: have: %v, want: %v", have, want)
	}
	if have, want := item["attrs"].(map[string]interface{})["weight"], 1.5; have != want {
		t.Errorf("object aliased: have: %v, want: %v", have, want)
	}

	if Item(nil).Copy() != nil {
		t.Error("expected nil copy of nil item")
	}
}
