package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrEmptyResult marks a job that reached a successful terminal state
	// without providing any extractable result URL.
	ErrEmptyResult = errors.New("job completed but no result URL was provided")

	// ErrPollTimeout marks a poll loop that exceeded its deadline before the
	// job reached a terminal state. The remote job may still complete.
	ErrPollTimeout = errors.New("timed out waiting for job to finish")

	// ErrCancelled marks a locally cancelled operation. Cancellation is
	// cooperative and does not stop the remote provider job.
	ErrCancelled = errors.New("generation cancelled")

	// ErrUnsupportedOperation marks a provider capability that is not yet
	// implemented. It is always returned synchronously, before any network call.
	ErrUnsupportedOperation = errors.New("operation not yet supported")

	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrRateLimited         = errors.New("rate limit exceeded")
	ErrAtCapacity          = errors.New("too many generations already in progress")
)

// SubmissionError reports a failed submit or poll HTTP call. It unwraps to
// ErrInsufficientCredits or ErrRateLimited for the status codes that carry a
// specific user action.
type SubmissionError struct {
	StatusCode int
	Message    string
}

func (e *SubmissionError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

func (e *SubmissionError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusForbidden:
		return ErrInsufficientCredits
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}

// ProviderJobError reports a job that reached a terminal failure state on the
// provider side.
type ProviderJobError struct {
	Provider string
	Message  string
}

func (e *ProviderJobError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "generation failed"
	}
	if e.Provider == "" {
		return msg
	}
	return fmt.Sprintf("%s: %s", e.Provider, msg)
}
