package minidb

import "errors"

var (
	// ErrStoreOpen wraps failures to create or open a store for writing.
	ErrStoreOpen = errors.New("cannot open store")

	// ErrStoreNotFound is returned when opening a store path for reading
	// that does not exist.
	ErrStoreNotFound = errors.New("no such store")

	// ErrCommit wraps transaction commit failures. The store keeps its
	// previously committed state.
	ErrCommit = errors.New("transaction commit failed")

	// ErrInvalidArgument is returned for empty record keys and
	// non-positive batch sizes.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmptyStore is returned when fetching a batch from a store with
	// zero committed records.
	ErrEmptyStore = errors.New("store is empty")

	// ErrClosed is returned by operations on a closed Writer or Reader.
	ErrClosed = errors.New("store is closed")

	// ErrTxDone is returned when using a transaction after Commit or
	// Rollback.
	ErrTxDone = errors.New("transaction already finalized")
)
