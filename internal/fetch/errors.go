package fetch

import (
	"fmt"
	"time"
)

// TimeoutError reports that a page did not arrive within the fetch budget.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Request timeout: Failed to fetch files within %d seconds", int(e.Timeout/time.Second))
}

// StoreQueryError reports a failed page query. The user sees a fixed
// message; the cause is kept for logs.
type StoreQueryError struct {
	Err error
}

func (e *StoreQueryError) Error() string {
	return "Could not fetch files."
}

func (e *StoreQueryError) Unwrap() error {
	return e.Err
}
