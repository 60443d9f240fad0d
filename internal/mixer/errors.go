package mixer

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexOutOfRange reports a route address outside the discovered
	// channel count.
	ErrIndexOutOfRange = errors.New("route index out of range")
	// ErrInvalidValue reports a volume outside [0, 100].
	ErrInvalidValue = errors.New("volume outside 0..100")
	// ErrInvalidLink reports an output linked to itself.
	ErrInvalidLink = errors.New("output cannot link to itself")
)

// BackendError wraps a failed read or write on a hardware control.
type BackendError struct {
	Control string
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Control, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

func backendErr(op, controlName string, err error) error {
	return &BackendError{Control: controlName, Op: op, Err: err}
}
