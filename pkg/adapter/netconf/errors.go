package netconf

import "errors"

var (
	// ErrNotConnected: the operation needs an open session.
	ErrNotConnected = errors.New("not connected")
	// ErrLockUnavailable: another session holds the datastore lock.
	// Retryable with backoff.
	ErrLockUnavailable = errors.New("datastore lock unavailable")
	// ErrNoPendingConfirmation: ConfirmCommit without an outstanding
	// confirmed commit.
	ErrNoPendingConfirmation = errors.New("no pending commit confirmation")
	// ErrUnknownState: a commit RPC failed in a way that leaves the device
	// state undetermined. Neither success nor failure may be assumed; a
	// later fact read has to resolve it.
	ErrUnknownState = errors.New("device state unknown after commit")
)
