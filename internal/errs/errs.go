// Package errs defines the sentinel error kinds shared across the antman
// core. Components wrap one of these with fmt.Errorf's %w verb so that
// callers can test the kind with errors.Is while still getting a
// component-specific message.
package errs

import "errors"

var (
	ErrAllocationFailed       = errors.New("allocation failed")
	ErrNullArgument           = errors.New("null argument")
	ErrAccessDenied           = errors.New("access denied")
	ErrBigsiUnindexed         = errors.New("bigsi is not indexed")
	ErrBigsiAlreadyIndexed    = errors.New("bigsi is already indexed")
	ErrBigsiHashCountMismatch = errors.New("bigsi hash count mismatch")
	ErrBigsiCapacityMismatch  = errors.New("bigsi capacity mismatch")
	ErrBigsiMissingRow        = errors.New("bigsi row missing from store")
	ErrBigsiOrFailure         = errors.New("bigsi bitwise or failed")
	ErrBigsiAndFailure        = errors.New("bigsi bitwise and failed")
	ErrBigsiColourOutOfRange  = errors.New("bigsi colour out of range")
	ErrBigsiDuplicateName     = errors.New("bigsi duplicate reference name")
	ErrBigsiEmptyFilter       = errors.New("bigsi filter is empty")
	ErrStoreIOError           = errors.New("store io error")
	ErrMetadataParseError     = errors.New("metadata parse error")
	ErrHashKernelInvalidK     = errors.New("hash kernel invalid k")
	ErrSequenceDecodeError    = errors.New("sequence decode error")
	ErrConfigInvalid          = errors.New("config invalid")
	ErrDaemonAlreadyRunning   = errors.New("daemon already running")
	ErrDaemonNotRunning       = errors.New("daemon not running")
)
