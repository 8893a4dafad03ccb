// Package common defines shared constants and sentinel errors used across
// the client, the transports and the sync server. Callers should use
// errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal = errors.New("internal error")

	// Pairing code errors.
	ErrInvalidSyncCode     = errors.New("invalid sync code format")
	ErrCodeSpaceExhausted  = errors.New("could not allocate a free sync code")
	ErrGroupNotFound       = errors.New("sync code not found")
	ErrGroupExists         = errors.New("sync group already exists")
	ErrSyncNotEnabled      = errors.New("sync not enabled")
	ErrRevisionConflict    = errors.New("sync group was modified concurrently")
	ErrUnavailable         = errors.New("sync backend unavailable")
	ErrUnsupportedBackend  = errors.New("unsupported sync backend")
	ErrInvalidExportFormat = errors.New("invalid export data")
)
