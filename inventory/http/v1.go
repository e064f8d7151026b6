package http

import (
	"net/http"

	"github.com/micromdm/nanoinv/inventory/storage"
	"github.com/micromdm/nanolib/log"
)

// Mux can register HTTP handlers.
// Ostensibly this supports flow router.
type Mux interface {
	// Handle registers the handler for the given pattern.
	Handle(pattern string, handler http.Handler, methods ...string)
}

// HandleAPIv1 registers the various API handlers into mux.
// API endpoint paths are prepended with prefix.
// Item IDs are read with flow.Param so mux must be a flow router
// (or otherwise populate flow route parameters).
// Authentication or any other layered handlers are not present.
// They are assumed to be layered with mux, possibly at the Handle call.
// The logger is adorned with a "handler" key of the endpoint name.
func HandleAPIv1(prefix string, mux Mux, logger log.Logger, s storage.Storage) {
	mux.Handle(
		prefix+"/inventory",
		ListItemsHandler(s, logger.With("handler", "list items")),
		"GET",
	)

	mux.Handle(
		prefix+"/inventory",
		CreateItemHandler(s, logger.With("handler", "create item")),
		"POST",
	)

	mux.Handle(
		prefix+"/inventory/:id",
		UpdateItemHandler(s, logger.With("handler", "update item")),
		"PUT",
	)

	mux.Handle(
		prefix+"/inventory/:id",
		DeleteItemHandler(s, logger.With("handler", "delete item")),
		"DELETE",
	)
}
