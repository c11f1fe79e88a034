package youtube

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/api/googleapi"
)

// ErrTerminal marks a call failure that retrying cannot fix: a malformed
// request or a resource the platform says does not exist. Terminal failures
// are logged and skipped; they do not count toward the circuit breaker.
var ErrTerminal = errors.New("terminal API error")

// classify maps a raw API error into the pipeline's taxonomy. 4xx responses
// become terminal; 5xx, timeouts and transport failures stay transient and
// count toward the breaker.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code >= 400 && apiErr.Code < 500 {
			return fmt.Errorf("%w: %d %s", ErrTerminal, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("server error %d: %w", apiErr.Code, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("call timed out: %w", err)
	}

	return err
}

// IsTerminal reports whether the error is a non-retryable caller error.
func IsTerminal(err error) bool {
	return errors.Is(err, ErrTerminal)
}

// CountsTowardBreaker reports whether a call error should advance the
// circuit breaker toward open.
func CountsTowardBreaker(err error) bool {
	return err != nil && !IsTerminal(err)
}
