package boltstore

import (
	"errors"
	"fmt"
	"time"
)

// LockTimeoutError is returned when the database file lock could not be
// acquired within the configured timeout. The call is abandoned; nothing
// is retried.
type LockTimeoutError struct {
	Path    string
	Timeout time.Duration
	Err     error
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock timeout: could not lock %s within %s", e.Path, e.Timeout)
}

func (e *LockTimeoutError) Unwrap() error {
	return e.Err
}

// IsLockTimeout returns true if err is a LockTimeoutError.
func IsLockTimeout(err error) bool {
	var e *LockTimeoutError
	return errors.As(err, &e)
}
