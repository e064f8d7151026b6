// Package http contains HTTP handlers for working with the inventory store.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/micromdm/nanoinv/http/api"
	"github.com/micromdm/nanoinv/inventory/storage"
	"github.com/micromdm/nanoinv/log/logkeys"

	"github.com/alexedwards/flow"
	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
)

var (
	ErrNoID        = errors.New("no ID provided")
	ErrNoStorage   = errors.New("no storage backend")
	ErrEmptyBody   = errors.New("empty body")
	ErrNotAnObject = errors.New("body must be a JSON object")
	ErrTrailing    = errors.New("body must only contain a single JSON object")

	// ErrNoSuchItem is the client-facing error for unknown item IDs.
	ErrNoSuchItem = errors.New("Item not found")
)

// decodeFields decodes the request body as a single JSON object.
// Numbers are kept as json.Number so they are re-encoded unchanged.
func decodeFields(r *http.Request) (storage.Item, error) {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	var fields storage.Item
	if err := dec.Decode(&fields); errors.Is(err, io.EOF) {
		return nil, ErrEmptyBody
	} else if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotAnObject, err)
	}
	if fields == nil {
		// a literal null
		return nil, ErrNotAnObject
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, ErrTrailing
	}
	return fields, nil
}

// ListItemsHandler returns an HTTP handler that lists all inventory items.
func ListItemsHandler(store storage.ReadStorage, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		if store == nil {
			logger.Info(logkeys.Message, "list items", logkeys.Error, ErrNoStorage)
			api.JSONError(w, ErrNoStorage, 0)
			return
		}
		items, err := store.ListItems(r.Context())
		if err != nil {
			logger.Info(logkeys.Message, "list items", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		logger.Debug(logkeys.Message, "list items", logkeys.GenericCount, len(items))
		if err = api.JSON(w, items, http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json", logkeys.Error, err)
			return
		}
	}
}

// CreateItemHandler returns an HTTP handler that creates an inventory item from a JSON object body.
func CreateItemHandler(store storage.Storage, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		if store == nil {
			logger.Info(logkeys.Message, "create item", logkeys.Error, ErrNoStorage)
			api.JSONError(w, ErrNoStorage, 0)
			return
		}
		fields, err := decodeFields(r)
		if err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			api.JSONError(w, err, http.StatusBadRequest)
			return
		}
		item, err := store.CreateItem(r.Context(), fields)
		if err != nil {
			logger.Info(logkeys.Message, "create item", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		logger.Debug(
			logkeys.Message, "created item",
			logkeys.ItemID, item.ID(),
			logkeys.GenericCount, len(fields),
		)
		if err = api.JSON(w, item, http.StatusCreated); err != nil {
			logger.Info(logkeys.Message, "encoding json", logkeys.Error, err)
			return
		}
	}
}

// UpdateItemHandler returns an HTTP handler that merges a JSON object body into an inventory item.
func UpdateItemHandler(store storage.Storage, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		if store == nil {
			logger.Info(logkeys.Message, "update item", logkeys.Error, ErrNoStorage)
			api.JSONError(w, ErrNoStorage, 0)
			return
		}
		id := flow.Param(r.Context(), "id")
		if id == "" {
			logger.Info(logkeys.Message, "id check", logkeys.Error, ErrNoID)
			api.JSONError(w, ErrNoID, http.StatusBadRequest)
			return
		}
		logger = logger.With(logkeys.ItemID, id)
		fields, err := decodeFields(r)
		if err != nil {
			logger.Info(logkeys.Message, "decoding body", logkeys.Error, err)
			api.JSONError(w, err, http.StatusBadRequest)
			return
		}
		item, err := store.UpdateItem(r.Context(), id, fields)
		if errors.Is(err, storage.ErrItemNotFound) {
			logger.Info(logkeys.Message, "update item", logkeys.Error, err)
			api.JSONError(w, ErrNoSuchItem, http.StatusNotFound)
			return
		} else if err != nil {
			logger.Info(logkeys.Message, "update item", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		logger.Debug(logkeys.Message, "updated item", logkeys.GenericCount, len(fields))
		if err = api.JSON(w, item, http.StatusOK); err != nil {
			logger.Info(logkeys.Message, "encoding json", logkeys.Error, err)
			return
		}
	}
}

// DeleteItemHandler returns an HTTP handler that deletes an inventory item.
// Deleting an unknown item succeeds.
func DeleteItemHandler(store storage.Storage, logger log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := ctxlog.Logger(r.Context(), logger)
		if store == nil {
			logger.Info(logkeys.Message, "delete item", logkeys.Error, ErrNoStorage)
			api.JSONError(w, ErrNoStorage, 0)
			return
		}
		id := flow.Param(r.Context(), "id")
		if id == "" {
			logger.Info(logkeys.Message, "id check", logkeys.Error, ErrNoID)
			api.JSONError(w, ErrNoID, http.StatusBadRequest)
			return
		}
		logger = logger.With(logkeys.ItemID, id)
		if err := store.DeleteItem(r.Context(), id); err != nil {
			logger.Info(logkeys.Message, "delete item", logkeys.Error, err)
			api.JSONError(w, err, 0)
			return
		}
		logger.Debug(logkeys.Message, "deleted item")
		w.WriteHeader(http.StatusNoContent)
	}
}
