package providers

import (
	"errors"
	"fmt"
)

// Error is a provider call failure. Status is zero for network-level errors.
type Error struct {
	Provider string
	Status   int
	Message  string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: HTTP %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Provider, e.Message)
}

// retryableStatuses are the HTTP codes worth a second attempt.
var retryableStatuses = map[int]bool{
	429: true,
	500: true,
	502: true,
	503: true,
}

// IsRetryable reports whether err should be retried: retryable HTTP statuses
// and network-level failures qualify, all other 4xx are fatal.
func IsRetryable(err error) bool {
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Status == 0 {
			return true // network error
		}
		return retryableStatuses[pe.Status]
	}
	return false
}
