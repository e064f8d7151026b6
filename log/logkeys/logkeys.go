// Package logkeys defines some static logging keys for consistent structured logging output.
// Mostly exists as a mental aid when drafting log messages.
package logkeys

const (
	Message = "msg"
	Error   = "err"

	// an inventory item ID.
	ItemID = "id"

	// a context-dependent numerical count/length of something
	GenericCount = "count"
)
