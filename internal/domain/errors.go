package domain

import (
	"errors"
	"fmt"
)

// ErrVersionConflict reports that a conditional account update lost to a
// concurrent writer. Stores return it from Save; the engine wraps it as an
// infrastructure error and the caller retries the whole operation from
// scratch.
var ErrVersionConflict = errors.New("concurrent modification conflict")

// InvalidRequestError reports caller-supplied data that fails validation or
// references an entity that does not exist. Nothing is persisted when one is
// returned. NotFound distinguishes a missing entity from malformed data so
// transports can map the two without inspecting the message.
type InvalidRequestError struct {
	Reason   string
	NotFound bool
}

func (e *InvalidRequestError) Error() string {
	return e.Reason
}

// InvalidRequestf builds an InvalidRequestError from a format string.
func InvalidRequestf(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...)}
}

// NotFoundf builds an InvalidRequestError for an entity that does not exist.
func NotFoundf(format string, args ...any) error {
	return &InvalidRequestError{Reason: fmt.Sprintf(format, args...), NotFound: true}
}

// IsInvalidRequest reports whether err is (or wraps) an InvalidRequestError.
func IsInvalidRequest(err error) bool {
	var ir *InvalidRequestError
	return errors.As(err, &ir)
}

// IsNotFound reports whether err is an InvalidRequestError flagged as a
// missing entity.
func IsNotFound(err error) bool {
	var ir *InvalidRequestError
	return errors.As(err, &ir) && ir.NotFound
}

// InfrastructureError reports that a backing store could not complete a read
// or write. It propagates to the caller uninterpreted; retry policy belongs
// to the caller.
type InfrastructureError struct {
	Op  string
	Err error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}

// Infra wraps a store failure with the operation that hit it.
func Infra(op string, err error) error {
	return &InfrastructureError{Op: op, Err: err}
}

// IsInfrastructure reports whether err is (or wraps) an InfrastructureError.
func IsInfrastructure(err error) bool {
	var ie *InfrastructureError
	return errors.As(err, &ie)
}
