package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrValidation       = errors.New("validation failed")
	ErrRetriesExhausted = errors.New("retries exhausted")
	// ErrAlreadyPublished guards terminal schedules against reschedule,
	// retry and publish-now.
	ErrAlreadyPublished = errors.New("publication already published")
)

// TimeoutError marks a brand step-chain that exceeded its time box. It is
// recorded per brand and never aborts sibling brands.
type TimeoutError struct {
	Brand string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("brand %s: generation exceeded %s", e.Brand, e.Limit)
}

// TransientError marks a provider response worth retrying, typically rate
// limiting that is expected to clear on its own.
type TransientError struct {
	Provider string
	Reason   string
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("%s: transient failure: %s", e.Provider, e.Reason)
}

// HardCapError marks a provider-declared daily ceiling. Retrying cannot help;
// ResetAt estimates when the budget refreshes.
type HardCapError struct {
	Provider string
	ResetAt  time.Time
}

func (e *HardCapError) Error() string {
	return fmt.Sprintf("%s: daily limit reached, resets around %s", e.Provider, e.ResetAt.Format(time.RFC3339))
}

// IsTransient reports whether err should go through the retry policy.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsHardCap reports whether err is a non-retryable provider ceiling.
func IsHardCap(err error) bool {
	var he *HardCapError
	return errors.As(err, &he)
}
