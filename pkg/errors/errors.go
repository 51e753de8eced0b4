package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidWeights  = errors.New("fusion weights cannot be normalized")
	ErrNoRankVector    = errors.New("rank vector required but not supplied")
	ErrArtifactMissing = errors.New("index artifact not found")
	ErrCorruptArtifact = errors.New("index artifact corrupted")
	ErrTimeout         = errors.New("operation timed out")
	ErrInternal        = errors.New("internal error")
)

// AppError pairs a sentinel error with a caller-facing message and an HTTP
// status for the demo front-end.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrInvalidWeights),
		errors.Is(err, ErrNoRankVector):
		return http.StatusBadRequest
	case errors.Is(err, ErrArtifactMissing):
		return http.StatusNotFound
	case errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
