package installer

import (
	"errors"
	"fmt"
)

// Precondition failures. Both are detected before any side effect.
var (
	ErrMissingExecutable = errors.New("companion executable not found")
	ErrMissingTemplate   = errors.New("unit template not found")
)

// StepError reports which install step failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}
