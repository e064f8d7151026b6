package main

import (
	"fmt"

	storageinv "github.com/micromdm/nanoinv/inventory/storage"
	storageinvinmem "github.com/micromdm/nanoinv/inventory/storage/inmem"
	storageinvkv "github.com/micromdm/nanoinv/inventory/storage/kv"
	"github.com/micromdm/nanoinv/utils/kv/kvmap"
)

func parseStorage(name string) (storageinv.Storage, error) {
	switch name {
	case "inmem":
		return storageinvinmem.New(), nil
	case "kvmap":
		return storageinvkv.New(kvmap.NewBucket()), nil
	}
	return nil, fmt.Errorf("unknown storage: %s", name)
}
