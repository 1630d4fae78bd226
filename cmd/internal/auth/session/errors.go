package session

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned by a Store when no active row matches.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmployeeNotFound is returned by a Directory for an unknown employee id.
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrInvalidEmployeeID is returned when a session is requested for a blank employee id.
	ErrInvalidEmployeeID = errors.New("invalid employee id")

	// ErrConfig is returned for invalid configuration.
	ErrConfig = errors.New("invalid config")
)

// StorageError wraps a failure of the backing store. Validation treats it as
// unauthenticated; callers must not retry it as a domain outcome.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session store: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err came from the backing store.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrSessionNotFound) || IsStorageError(err) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// Failure is the reason a token did not validate. It is a value, not an error:
// every failure collapses to "unauthenticated" for the caller.
type Failure int

const (
	FailureNone Failure = iota
	FailureNotFound
	FailureExpired
	FailureEmployeeInactive
)

func (f Failure) String() string {
	switch f {
	case FailureNone:
		return "ok"
	case FailureNotFound:
		return "not_found"
	case FailureExpired:
		return "expired"
	case FailureEmployeeInactive:
		return "employee_inactive"
	default:
		return fmt.Sprintf("failure(%d)", int(f))
	}
}
