package translator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidResponse means the remote answered 2xx with an unusable payload.
	ErrInvalidResponse = errors.New("invalid response from translation service")
	// ErrJobFailed means the remote reported the job as FAILED.
	ErrJobFailed = errors.New("translation failed")
	// ErrJobTimedOut means the job deadline passed before COMPLETE was seen.
	ErrJobTimedOut = errors.New("translation timed out")
	// ErrUpstreamTimeout means a single remote call exceeded its own timeout.
	ErrUpstreamTimeout = errors.New("translation service request timed out")
	// ErrNetwork wraps transport-level failures talking to the remote.
	ErrNetwork = errors.New("translation service unreachable")
	// ErrUpstreamUnavailable is returned while the circuit breaker is open.
	ErrUpstreamUnavailable = errors.New("translation service temporarily unavailable")
	// ErrCanceled means the caller went away before the job finished.
	ErrCanceled = errors.New("translation canceled")
)

// UpstreamError is a non-2xx answer from the remote API.
type UpstreamError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: translation service returned %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: translation service returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// serverSide reports whether the status points at the remote rather than us.
func (e *UpstreamError) serverSide() bool {
	return e.StatusCode >= 500
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
