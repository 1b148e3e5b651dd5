package ai

import (
	"errors"
	"fmt"
)

var ErrInvalidArgument = errors.New("invalid argument")

// ExternalServiceError wraps any failure of a remote AI call. Calls are never retried.
type ExternalServiceError struct {
	Op  string
	Err error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
