package bobyqa

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig matches every *ValidationError with errors.Is.
var ErrInvalidConfig = errors.New("invalid bobyqa configuration")

// ValidationError reports a setter argument or run precondition that was
// rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidConfig {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}
