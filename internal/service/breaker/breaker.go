// Package breaker guards calls to an external dependency with a three-state
// circuit breaker (closed, open, half-open).
package breaker

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/fieldshow/bandcatalog/internal/metrics"
	"github.com/fieldshow/bandcatalog/pkg/logger"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// attempting the network. Retry after the cooldown.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Breaker wraps one external dependency. Trips to open after a configured
// run of consecutive counted failures; after the cooldown a single probe is
// allowed through (half-open) before the breaker closes again or re-opens.
type Breaker struct {
	cb   *gobreaker.CircuitBreaker[any]
	name string
}

// New creates a breaker for the named dependency. countsAsFailure decides
// which errors advance the breaker toward open; terminal caller errors
// (malformed request, not-found) should return false so a misbehaving job
// cannot take the dependency offline for everyone else.
func New(name string, failureThreshold int, cooldown time.Duration, countsAsFailure func(error) bool) *Breaker {
	if failureThreshold <= 0 {
		failureThreshold = 5
	}
	if cooldown <= 0 {
		cooldown = 2 * time.Minute
	}

	metrics.BreakerState.WithLabelValues(name).Set(stateValue(gobreaker.StateClosed))

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1, // exactly one probe while half-open
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(failureThreshold)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Log.Info("circuit breaker state change",
				zap.String("dependency", name),
				zap.String("from", stateName(from)),
				zap.String("to", stateName(to)),
			)
			metrics.BreakerState.WithLabelValues(name).Set(stateValue(to))
			if to == gobreaker.StateOpen {
				metrics.BreakerTrips.WithLabelValues(name).Inc()
			}
		},
	})

	return &Breaker{cb: cb, name: name}
}

// Execute runs fn under breaker protection. While the breaker is open the
// call fails fast with ErrCircuitOpen and fn is never invoked.
func (b *Breaker) Execute(fn func() (any, error)) (any, error) {
	result, err := b.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result, nil
}

// State returns the current breaker state name for the admin API.
func (b *Breaker) State() string {
	return stateName(b.cb.State())
}

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
