package generate

import (
	"context"
	"errors"
	"net/http"

	"daygen/internal/domain"
)

// Category buckets a generation failure by the user action it calls for.
type Category string

const (
	CategoryNone        Category = ""
	CategoryAuth        Category = "auth"
	CategoryCredits     Category = "credits"
	CategoryRateLimit   Category = "rate_limit"
	CategoryCapacity    Category = "capacity"
	CategoryTimeout     Category = "timeout"
	CategoryCancelled   Category = "cancelled"
	CategoryUnsupported Category = "unsupported"
	CategoryProvider    Category = "provider"
	CategoryUnknown     Category = "unknown"
)

// Classify maps an error from any point of the generation pipeline onto its
// category. Order matters: the specific sentinels win over the generic
// submission wrapper they unwrap to.
func Classify(err error) Category {
	switch {
	case err == nil:
		return CategoryNone
	case errors.Is(err, domain.ErrInsufficientCredits):
		return CategoryCredits
	case errors.Is(err, domain.ErrRateLimited):
		return CategoryRateLimit
	case errors.Is(err, domain.ErrAtCapacity):
		return CategoryCapacity
	case errors.Is(err, domain.ErrPollTimeout), errors.Is(err, context.DeadlineExceeded):
		return CategoryTimeout
	case errors.Is(err, domain.ErrCancelled), errors.Is(err, context.Canceled):
		return CategoryCancelled
	case errors.Is(err, domain.ErrUnsupportedOperation):
		return CategoryUnsupported
	}
	var subErr *domain.SubmissionError
	if errors.As(err, &subErr) {
		if subErr.StatusCode == http.StatusUnauthorized {
			return CategoryAuth
		}
		return CategoryProvider
	}
	var jobErr *domain.ProviderJobError
	if errors.As(err, &jobErr) {
		return CategoryProvider
	}
	return CategoryUnknown
}

// UserMessage resolves an error to the copy shown to the user. Provider
// failures surface the provider's own message when it has one; everything else
// gets a stable per-category line.
func UserMessage(err error) string {
	switch Classify(err) {
	case CategoryNone:
		return ""
	case CategoryAuth:
		return "Your session has expired. Please sign in again."
	case CategoryCredits:
		return "You have run out of credits. Add more to keep generating."
	case CategoryRateLimit:
		return "You are sending requests too quickly. Wait a moment and try again."
	case CategoryCapacity:
		return "Too many generations are already running. Wait for one to finish."
	case CategoryTimeout:
		return "This is taking longer than expected. The job may still finish in the background."
	case CategoryCancelled:
		return "Generation cancelled."
	case CategoryUnsupported:
		return "This operation is not supported for this model yet."
	case CategoryProvider:
		var jobErr *domain.ProviderJobError
		if errors.As(err, &jobErr) && jobErr.Message != "" {
			return jobErr.Message
		}
		return "The provider could not complete this generation. Try again or pick another model."
	default:
		return "Something went wrong. Please try again."
	}
}
