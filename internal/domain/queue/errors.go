package queue

import "errors"

// Typed failures returned by the mutation service. Handlers map these to
// HTTP status codes; everything else is treated as an internal error.
var (
	// ErrConflict signals a duplicate active entry for a (doctor, patient)
	// pair, or a doctor who is already mid-consultation.
	ErrConflict = errors.New("conflicting active queue entry")

	// ErrUnavailable signals that the doctor is not accepting patients.
	ErrUnavailable = errors.New("doctor is not accepting patients")

	// ErrInvalidState signals an operation that is not legal from the
	// entry's current status.
	ErrInvalidState = errors.New("operation not valid for entry status")

	// ErrBusy signals that the per-doctor serialization boundary could not
	// be acquired in time. Safe to retry with backoff.
	ErrBusy = errors.New("doctor queue is busy")

	// ErrNotFound signals a missing queue entry.
	ErrNotFound = errors.New("queue entry not found")
)
