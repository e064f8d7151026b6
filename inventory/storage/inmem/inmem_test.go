package inmem

import (
	"testing"
	"time"

	"github.com/micromdm/nanoinv/inventory/storage"
	"github.com/micromdm/nanoinv/inventory/storage/test"
	"github.com/micromdm/nanoinv/utils/uuid"
)

func TestInMem(t *testing.T) {
	test.TestStorage(t, func(ider uuid.IDer, now func() time.Time) storage.Storage {
		return New(WithIDer(ider), WithNow(now))
	})
}
