package broker

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

type BreakerSettings struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// CircuitBreakerSource stops calling a failing source until its timeout
// passes. It does not retry.
type CircuitBreakerSource struct {
	source  Source
	breaker *gobreaker.CircuitBreaker
}

func NewCircuitBreakerSource(source Source, settings BreakerSettings, logger *zap.Logger) *CircuitBreakerSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 3
	}
	return &CircuitBreakerSource{
		source: source,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "broker-orders",
			MaxRequests: settings.MaxRequests,
			Interval:    settings.Interval,
			Timeout:     settings.Timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: isBreakerSuccess,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("broker circuit state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		}),
	}
}

func (c *CircuitBreakerSource) FetchOrders(ctx context.Context, userID string, since time.Time) ([]Record, error) {
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.source.FetchOrders(ctx, userID, since)
	})
	if err != nil {
		return nil, err
	}
	records, _ := res.([]Record)
	return records, nil
}

func (c *CircuitBreakerSource) State() gobreaker.State {
	return c.breaker.State()
}

// isBreakerSuccess accepts errors that say nothing about the source's health.
func isBreakerSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, ErrUnknownUser) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return !apiErr.Temporary() && apiErr.Status != 401 && apiErr.Status != 403
	}
	return false
}

// IsUnavailable reports whether err came from an open or saturated circuit.
func IsUnavailable(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
