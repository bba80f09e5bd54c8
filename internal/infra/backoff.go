package infra

import (
	"time"
)

const (
	// Standard backoff constants for reconnect loops.
	baseDelay = 1 * time.Second
	maxDelay  = 60 * time.Second
)

// CalculateBackoff returns the exponential backoff duration for a given retry count.
// Logic: baseDelay * 2^retryCount, capped at maxDelay.
// If retryCount is negative, it returns baseDelay.
func CalculateBackoff(retryCount int) time.Duration {
	return BackoffWithBase(baseDelay, maxDelay, retryCount)
}

// BackoffWithBase is CalculateBackoff with explicit base and cap.
// The query cache retries with a much shorter base (hundreds of ms)
// than connection loops, so the bounds are caller-supplied here.
func BackoffWithBase(base, max time.Duration, retryCount int) time.Duration {
	if retryCount < 0 {
		return base
	}

	// 2^30 seconds already dwarfs any sane cap; bail before shifting overflows.
	if retryCount > 30 {
		return max
	}

	backoff := base * time.Duration(1<<retryCount)
	if backoff > max {
		return max
	}
	return backoff
}
