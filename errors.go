package opentsdb

import (
	"fmt"

	"github.com/SStar1314/opentsdb/qerr"
)

// Error taxonomy for the query core (spec §7), re-exported from qerr so
// callers can match on opentsdb.ErrXxx without importing the leaf error
// package directly. Identity is qerr's: these are the same sentinel
// values, not copies, so errors.Is against either name succeeds.
//
// Programming-error classes (ErrSeriesMismatch, ErrOutOfOrderRow,
// ErrScannerInvariant, ErrMalformedKey) are non-recoverable at the query
// level: the query aborts (qerr.Fatal reports this). Lookup misses and
// storage errors are surfaced to the caller.
var (
	ErrInvalidTimestamp = qerr.ErrInvalidTimestamp
	ErrTimeRangeInvalid = qerr.ErrTimeRangeInvalid
	ErrNoSuchName       = qerr.ErrNoSuchName
	ErrNoSuchID         = qerr.ErrNoSuchID
	ErrSeriesMismatch   = qerr.ErrSeriesMismatch
	ErrOutOfOrderRow    = qerr.ErrOutOfOrderRow
	ErrScannerInvariant = qerr.ErrScannerInvariant
	ErrMalformedKey     = qerr.ErrMalformedKey
	ErrExhausted        = qerr.ErrExhausted
	ErrStorageError     = qerr.ErrStorageError
)

// NoSuchNameError adds the offending kind and name to a lookup miss from
// the intern service, for a caller-facing error message. It unwraps to
// qerr.ErrNoSuchName, so errors.Is(err, opentsdb.ErrNoSuchName) still
// matches.
type NoSuchNameError struct {
	Kind string
	Name string
}

func (e *NoSuchNameError) Error() string {
	return fmt.Sprintf("opentsdb: no such %s: %q", e.Kind, e.Name)
}

func (e *NoSuchNameError) Unwrap() error { return qerr.ErrNoSuchName }

// NoSuchIDError adds the offending kind and id to a reverse-lookup miss.
// It is only ever surfaced post-hoc (e.g. when stringifying a dropped
// row's ids for a log line), never to the caller mid-query.
type NoSuchIDError struct {
	Kind string
	ID   []byte
}

func (e *NoSuchIDError) Error() string {
	return fmt.Sprintf("opentsdb: no such %s id: <%x>", e.Kind, e.ID)
}

func (e *NoSuchIDError) Unwrap() error { return qerr.ErrNoSuchID }
