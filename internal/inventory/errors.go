package inventory

import "errors"

// Sentinel errors for inventory operations.
// These can be checked with errors.Is() for specific error handling.
var (
	// ErrDeviceNotFound indicates the requested device does not exist.
	ErrDeviceNotFound = errors.New("inventory: device not found")

	// ErrServiceNotFound indicates the requested service does not exist.
	ErrServiceNotFound = errors.New("inventory: service not found")

	// ErrInvalidAnnouncement indicates a discovery announcement payload
	// could not be decoded or is missing required fields.
	ErrInvalidAnnouncement = errors.New("inventory: invalid announcement")
)
