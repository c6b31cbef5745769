package db

import (
	"errors"
	"fmt"
)

// DataAccessError is the single failure kind surfaced by the facade. It
// carries the engine's error untouched.
type DataAccessError struct {
	Op    string
	Store string
	Err   error
}

func (e *DataAccessError) Error() string {
	if e.Store == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Store, e.Err)
}

func (e *DataAccessError) Unwrap() error {
	return e.Err
}

// NewDataAccessError wraps err, returning nil when err is nil.
func NewDataAccessError(op, store string, err error) error {
	if err == nil {
		return nil
	}
	return &DataAccessError{Op: op, Store: store, Err: err}
}

// IsDataAccessError reports whether err is a DataAccessError (even when wrapped).
func IsDataAccessError(err error) bool {
	var dae *DataAccessError
	return errors.As(err, &dae)
}
