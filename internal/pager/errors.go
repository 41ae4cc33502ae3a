package pager

import "errors"

// Sentinel errors distinguishing the failure kinds the pager must surface.
// Callers compare with errors.Is; wrapping call sites add context with %w.
var (
	// ErrInvalidDatabase is returned on open when the file's magic number
	// does not match, or its version is unsupported.
	ErrInvalidDatabase = errors.New("pager: invalid database file")

	// ErrLockBusy is returned on open when another process already holds
	// the file's exclusive advisory lock.
	ErrLockBusy = errors.New("pager: database file is locked by another process")

	// ErrTransactionActive is returned by BeginTx when a transaction is
	// already open.
	ErrTransactionActive = errors.New("pager: a transaction is already active")

	// ErrNoActiveTransaction is returned by any mutating call made outside
	// a transaction.
	ErrNoActiveTransaction = errors.New("pager: no active transaction")

	// ErrPageOutOfBounds is returned when a page id is >= the current page count.
	ErrPageOutOfBounds = errors.New("pager: page id out of bounds")

	// ErrCannotFreeMetaPage is returned by FreePage(0).
	ErrCannotFreeMetaPage = errors.New("pager: cannot free the metadata page")
)
