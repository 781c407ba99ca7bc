package sim

import "errors"

// Sentinel errors for rejected commands and internal invariant violations.
// Boundary validation failures wrap one of the first three; no event is
// scheduled when a command is rejected.
var (
	ErrInvalidDiagnosis    = errors.New("invalid diagnosis code")
	ErrUnknownResourceType = errors.New("unknown resource type")
	ErrMalformedTimestamp  = errors.New("malformed timestamp")

	// ErrLedgerDesync indicates the ledger reported a non-empty queue but the
	// head entry could not be dequeued. This is data corruption, not a
	// condition callers can recover from.
	ErrLedgerDesync = errors.New("ledger and queue are out of sync")
)
