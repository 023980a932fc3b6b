package translator

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
)

// breaker fails fast while the remote keeps failing at the transport or 5xx
// level. It never retries a call.
type breaker struct {
	cb *gobreaker.CircuitBreaker
}

// newBreaker builds a breaker that opens after `failures` consecutive
// failures and probes again after `cooldown`. failures == 0 disables tripping.
func newBreaker(name string, failures uint32, cooldown time.Duration, logger zerolog.Logger) *breaker {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return failures > 0 && counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		},
	}
	return &breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (b *breaker) do(fn func() (interface{}, error)) (interface{}, error) {
	v, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}
	return v, err
}

func (b *breaker) state() string {
	return b.cb.State().String()
}

// countsAsSuccess: only transport errors, timeouts and 5xx count as failures.
func countsAsSuccess(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, ErrCanceled) || errors.Is(err, ErrInvalidResponse) {
		return true
	}
	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return !upstream.serverSide()
	}
	return false
}
