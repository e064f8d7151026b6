package uuid

import (
	"testing"

	"github.com/google/uuid"
)

func TestUUIDUnique(t *testing.T) {
	u := NewUUID()
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := u.ID()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate UUID: %s", id)
		}
		seen[id] = struct{}{}
	}
}

func TestUUIDVersion(t *testing.T) {
	parsed, err := uuid.Parse(NewUUID().ID())
	if err != nil {
		t.Fatal(err)
	}
	if have, want := parsed.Version(), uuid.Version(4); have != want {
		t.Errorf("unexpected UUID version: have: %v, want: %v", have, want)
	}
}

func TestStaticIDs(t *testing.T) {
	u := NewStaticIDs("A", "B")
	for _, expected := range []string{"A", "B", "A", "B", "A"} {
		if have, want := u.ID(), expected; have != want {
			t.Errorf("unexpected ID: have: %v, want: %v", have, want)
		}
	}
}
