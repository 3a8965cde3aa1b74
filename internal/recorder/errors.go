package recorder

import "errors"

var (
	// ErrScheduleNotFound is returned when the schedule service has no
	// schedule for the requested episode inside the search window.
	ErrScheduleNotFound = errors.New("no schedule found for episode")

	// ErrOccurrenceNotFound is returned when a matching schedule exists but
	// lists no occurrences inside the search window.
	ErrOccurrenceNotFound = errors.New("no occurrences of episode found")

	// ErrNoPortsAvailable is returned when every port in the configured pool
	// is in use. Retryable once a running capture terminates.
	ErrNoPortsAvailable = errors.New("no ports available")

	// ErrPortNotAllocated is returned when releasing a port that is not
	// marked used. Double releases are accounting bugs and fail loudly.
	ErrPortNotAllocated = errors.New("port not allocated")

	// ErrUnknownFormat is returned for capture formats the recorder does not
	// support.
	ErrUnknownFormat = errors.New("unknown recording format")
)

// UpstreamError wraps a transport failure from an external collaborator
// (schedule service, lock, or durable store). These propagate as-is with no
// built-in retry.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}
