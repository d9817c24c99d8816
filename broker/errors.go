package broker

import "fmt"

// Error wraps any subscribe, assignment, or offset-lookup failure reported
// by a driver. It is fatal to the fetch that triggered it; no retries
// happen below this package.
type Error struct {
	Op  string // "subscribe", "assignment", "offsets", "consume"
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("broker: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
