package store

import "errors"

var (
	// ErrNilParam indicates a required parameter is nil.
	ErrNilParam = errors.New("store: required parameter is nil")

	// ErrClosed indicates the store has been closed.
	ErrClosed = errors.New("store: closed")

	// ErrCorrupt indicates a persisted record could not be decoded.
	ErrCorrupt = errors.New("store: corrupt record")
)
