package kvmap

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/micromdm/nanoinv/utils/kv"
)

func TestKVMap(t *testing.T) {
	b := NewBucket()
	ctx := context.Background()

	_, err := b.Get(ctx, "missing")
	if !errors.Is(err, kv.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, have: %v", err)
	}

	err = kv.SetMap(ctx, b, map[string][]byte{"a": []byte("1"), "b": []byte("2")})
	if err != nil {
		t.Fatal(err)
	}

	v, err := b.Get(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if have, want := v, []byte("1"); !bytes.Equal(have, want) {
		t.Errorf("have: %s, want: %s", have, want)
	}

	// returned values must not alias the stored values
	v[0] = 'X'
	v, _ = b.Get(ctx, "a")
	if have, want := v, []byte("1"); !bytes.Equal(have, want) {
		t.Errorf("stored value modified through Get: have: %s, want: %s", have, want)
	}

	if err = kv.DeleteSlice(ctx, b, []string{"a", "b", "c"}); err != nil {
		t.Fatal(err)
	}

	for _, k := range []string{"a", "b"} {
		found, err := b.Has(ctx, k)
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Errorf("expected key %s to be deleted", k)
		}
	}
}
