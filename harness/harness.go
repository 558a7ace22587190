// Package harness defines the executable test unit bound to one descriptor.
package harness

import (
	"errors"
	"fmt"

	"github.com/embedded-ci/dut-campaign/types"
)

// Harness is a zero-argument executable test unit. Run performs the test's
// interaction with the DUT and returns its result; a nil result means the
// test passed with nothing to report. An error is a harness-level failure,
// recovered by the runner as a failed result.
type Harness interface {
	Run() (*types.TestResult, error)
}

// Func adapts a plain function to the Harness interface.
type Func func() (*types.TestResult, error)

func (f Func) Run() (*types.TestResult, error) {
	return f()
}

// Error represents a harness-level failure: the harness could not complete
// its interaction with the DUT.
type Error struct {
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("harness error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new harness Error
func NewError(err error) *Error {
	return &Error{Err: err}
}

// Errorf creates a new harness Error from a format string
func Errorf(format string, args ...any) *Error {
	return &Error{Err: fmt.Errorf(format, args...)}
}

// IsError checks if the error is or wraps a harness Error
func IsError(err error) bool {
	var harnessErr *Error
	return err != nil && errors.As(err, &harnessErr)
}

// FlashError represents a failure while flashing an image to the DUT.
// Flash errors are fatal to the whole campaign.
type FlashError struct {
	Err error
}

func (e *FlashError) Error() string {
	return fmt.Sprintf("flash error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *FlashError) Unwrap() error {
	return e.Err
}

// NewFlashError creates a new FlashError
func NewFlashError(err error) *FlashError {
	return &FlashError{Err: err}
}

// IsFlashError checks if the error is or wraps a FlashError
func IsFlashError(err error) bool {
	var flashErr *FlashError
	return err != nil && errors.As(err, &flashErr)
}
