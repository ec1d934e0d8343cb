package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	// ErrUnsupportedFileType is returned when an upload's extension is not in the allow-list.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrModelNotInitialized is returned when a task is requested before the model is ready.
	ErrModelNotInitialized = errors.New("model not initialized")

	// ErrMissingResult is returned when a task completed but its expected output file is absent.
	ErrMissingResult = errors.New("no result file generated")

	// ErrStorage is returned on object-storage transport or credential failures.
	ErrStorage = errors.New("object storage error")

	// ErrInvalidLocator is returned for locators that are not s3://bucket/key shaped.
	ErrInvalidLocator = errors.New("invalid S3 URL format")

	// ErrInvalidDirectory is returned when a drain target is missing or not a directory.
	ErrInvalidDirectory = errors.New("not a valid directory")

	// ErrShutdown is returned when work is submitted to a runner that is draining.
	ErrShutdown = errors.New("runner is shutting down")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewTaskError wraps a failure that happened inside a model invocation.
func NewTaskError(message string, cause error) *AppError {
	return NewAppError("TASK_EXECUTION", message, cause)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
