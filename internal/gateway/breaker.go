package gateway

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"

	"github.com/openclaw/wheelhouse/internal/models"
)

// CircuitBreakerSession wraps a Session with circuit breaker functionality
// so a broken bridge fails fast instead of stacking up serialized timeouts.
type CircuitBreakerSession struct {
	session Session
	breaker *gobreaker.CircuitBreaker
}

// Ensure CircuitBreakerSession implements Session at compile time.
var _ Session = (*CircuitBreakerSession)(nil)

// CircuitBreakerSettings configures circuit breaker behavior
type CircuitBreakerSettings struct {
	MaxRequests  uint32        // Max requests when half-open
	Interval     time.Duration // Reset counts interval
	Timeout      time.Duration // Open circuit duration
	MinRequests  uint32        // Min requests before tripping
	FailureRatio float64       // Failure ratio threshold
}

// NewCircuitBreakerSession creates a CircuitBreakerSession with sensible defaults
func NewCircuitBreakerSession(session Session) *CircuitBreakerSession {
	return NewCircuitBreakerSessionWithSettings(session, CircuitBreakerSettings{
		MaxRequests:  3,                // Allow 3 requests when half-open
		Interval:     60 * time.Second, // Reset counts every minute
		Timeout:      30 * time.Second, // Open circuit for 30 seconds
		MinRequests:  5,                // Minimum requests before tripping
		FailureRatio: 0.6,              // Trip if 60% failure rate
	})
}

// NewCircuitBreakerSessionWithSettings creates a CircuitBreakerSession with custom settings
func NewCircuitBreakerSessionWithSettings(session Session, settings CircuitBreakerSettings) *CircuitBreakerSession {
	gbSettings := gobreaker.Settings{
		Name:        "GatewaySession",
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 || counts.Requests < settings.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= settings.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("Circuit breaker %s state changed from %s to %s", name, from, to)
		},
	}

	return &CircuitBreakerSession{
		session: session,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// execBreaker is a generic helper for circuit breaker wrapper methods
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) { return fn() })
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	v, ok := res.(T)
	if !ok {
		return zero, errors.New("circuit breaker: type assertion failed")
	}
	return v, nil
}

// Price wraps the underlying session call with circuit breaker
func (c *CircuitBreakerSession) Price(ctx context.Context, symbol string, tier models.Tier) (*QuoteItem, error) {
	return execBreaker(c.breaker, func() (*QuoteItem, error) { return c.session.Price(ctx, symbol, tier) })
}

// Chain wraps the underlying session call with circuit breaker
func (c *CircuitBreakerSession) Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*ChainPayload, error) {
	return execBreaker(c.breaker, func() (*ChainPayload, error) {
		return c.session.Chain(ctx, symbol, expiration, tier)
	})
}

// Positions wraps the underlying session call with circuit breaker
func (c *CircuitBreakerSession) Positions(ctx context.Context) ([]PositionItem, error) {
	return execBreaker(c.breaker, func() ([]PositionItem, error) { return c.session.Positions(ctx) })
}

// AccountValues wraps the underlying session call with circuit breaker
func (c *CircuitBreakerSession) AccountValues(ctx context.Context) ([]AccountValue, error) {
	return execBreaker(c.breaker, func() ([]AccountValue, error) { return c.session.AccountValues(ctx) })
}

// PlaceOrder wraps the underlying session call with circuit breaker
func (c *CircuitBreakerSession) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error) {
	return execBreaker(c.breaker, func() (*OrderConfirmation, error) { return c.session.PlaceOrder(ctx, req) })
}

// Clock wraps the underlying session call with circuit breaker
func (c *CircuitBreakerSession) Clock(ctx context.Context) (*ClockPayload, error) {
	return execBreaker(c.breaker, func() (*ClockPayload, error) { return c.session.Clock(ctx) })
}
