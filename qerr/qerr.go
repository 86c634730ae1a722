// Package qerr holds the query core's error taxonomy (spec §7) as sentinel
// values so every layer — rowkey, rowseq, span, filter, scan, group — can
// wrap the same identity with errors.Is/errors.As, and the root package can
// classify a failure as a caller-facing lookup miss vs. a fatal
// programming-error-class abort without string matching.
package qerr

import "errors"

var (
	ErrInvalidTimestamp = errors.New("timestamp outside [1, 2^32)")
	ErrTimeRangeInvalid = errors.New("start_time must be < end_time")
	ErrNoSuchName       = errors.New("intern service has no id for this name")
	ErrNoSuchID         = errors.New("intern service has no name for this id")
	ErrSeriesMismatch   = errors.New("row does not match span series identity")
	ErrOutOfOrderRow    = errors.New("row is out of order and cannot be merged")
	ErrScannerInvariant = errors.New("scanner returned a row outside the requested metric range")
	ErrMalformedKey     = errors.New("row key length does not match the schema")
	ErrExhausted        = errors.New("iterator advanced past end")
	ErrStorageError     = errors.New("store scanner I/O failure")
)

// Fatal reports whether err belongs to a programming-error class that must
// abort the query rather than surface as a partial result (spec §7
// propagation rules).
func Fatal(err error) bool {
	switch {
	case errors.Is(err, ErrSeriesMismatch),
		errors.Is(err, ErrOutOfOrderRow),
		errors.Is(err, ErrScannerInvariant),
		errors.Is(err, ErrMalformedKey):
		return true
	default:
		return false
	}
}
