package providers

import (
	"errors"
	"fmt"
)

// ErrTimeout is returned when a task never reaches a terminal state within
// its wall-clock budget. Distinct from a remote-reported failure.
var ErrTimeout = errors.New("task did not complete within its time budget")

// RequestError is a remote rejection of a request (4xx): bad parameters,
// insufficient balance, or rate limiting. These must not be retried
// blindly; the scene fails and the batch moves on.
type RequestError struct {
	StatusCode int
	Message    string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request rejected (status %d): %s", e.StatusCode, e.Message)
}

// Retryable reports whether the request may be resubmitted as-is.
// Rejections are permanent; transport errors are the retryable class.
func (e *RequestError) Retryable() bool { return false }

// TaskError is a failure reported by the provider for a task that was
// accepted and polled to a terminal fail state.
type TaskError struct {
	Code    string
	Message string
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("generation failed [%s]: %s", e.Code, e.Message)
}

// IsRejected reports whether err is a permanent remote rejection.
func IsRejected(err error) bool {
	var re *RequestError
	return errors.As(err, &re)
}
