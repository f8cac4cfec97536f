package remote

import (
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// #region constants

const maxRetries = 2 // max 2 retries = 3 total attempts

// retryBackoff is the pause before the first retry; it doubles per retry.
var retryBackoff = 50 * time.Millisecond

// #endregion

// #region should-retry

// shouldRetry reports whether a failed call is worth another attempt.
// attempts counts the calls made so far, including the failed one. Only
// transport-level unavailability is retried; the engine's own errors are not.
func shouldRetry(err error, attempts int) bool {
	if err == nil || attempts > maxRetries {
		return false
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}

func backoff(attempt int) time.Duration {
	return retryBackoff << (attempt - 1)
}

// #endregion
