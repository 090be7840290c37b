package quotes

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/market"
	"github.com/openclaw/wheelhouse/internal/models"
)

// DataUnavailableError means both quote sources failed. The caller must
// not fabricate a price; it renders the per-source causes instead.
type DataUnavailableError struct {
	Symbol      string
	PrimaryErr  error
	FallbackErr error
}

func (e *DataUnavailableError) Error() string {
	return fmt.Sprintf("no data available for %s: primary: %v; fallback: %v",
		e.Symbol, e.PrimaryErr, e.FallbackErr)
}

// StateSource reports the current market state. Satisfied by
// *market.Classifier; tests inject fixed states.
type StateSource interface {
	Classify(ctx context.Context) market.State
}

// Adapter is the single entry point for price and chain lookups. It asks
// the classifier which freshness tier may be requested, tries the primary
// source first, and substitutes the delayed fallback on subscription-denied,
// timeout, or empty-result failures. The substitution is not an error to
// the caller, only a provenance tag change. Nothing is cached across calls.
type Adapter struct {
	primary    Source
	fallback   Source
	classifier StateSource
	logger     *log.Logger
}

// NewAdapter wires the two sources behind the classifier-driven policy.
func NewAdapter(primary, fallback Source, classifier StateSource, logger *log.Logger) *Adapter {
	if logger == nil {
		logger = log.New(os.Stderr, "quotes: ", log.LstdFlags)
	}
	return &Adapter{primary: primary, fallback: fallback, classifier: classifier, logger: logger}
}

// GetPrice returns a quote for the symbol, tagged with its source.
func (a *Adapter) GetPrice(ctx context.Context, symbol string) (*models.Quote, error) {
	tier := market.TierFor(a.classifier.Classify(ctx))

	if tier == models.TierDelayed {
		// Unknown market state: degrade straight to the fallback.
		q, err := a.fallback.Price(ctx, symbol, tier)
		if err != nil {
			return nil, &DataUnavailableError{Symbol: symbol, PrimaryErr: errors.New("skipped: market state unknown"), FallbackErr: err}
		}
		return q, nil
	}

	q, primaryErr := a.primary.Price(ctx, symbol, tier)
	if primaryErr == nil {
		return q, nil
	}
	if !fallbackEligible(primaryErr) {
		return nil, primaryErr
	}
	a.logger.Printf("primary price lookup for %s failed (%v), falling back to %s", symbol, primaryErr, a.fallback.Name())

	q, fallbackErr := a.fallback.Price(ctx, symbol, models.TierDelayed)
	if fallbackErr != nil {
		return nil, &DataUnavailableError{Symbol: symbol, PrimaryErr: primaryErr, FallbackErr: fallbackErr}
	}
	return q, nil
}

// GetChain returns the option chain for the symbol, the whole chain served
// and tagged by exactly one source. An empty expiration means the nearest
// listed expiry.
func (a *Adapter) GetChain(ctx context.Context, symbol, expiration string) (*models.OptionChain, error) {
	tier := market.TierFor(a.classifier.Classify(ctx))

	if tier == models.TierDelayed {
		chain, err := a.fallback.Chain(ctx, symbol, expiration, tier)
		if err != nil {
			return nil, &DataUnavailableError{Symbol: symbol, PrimaryErr: errors.New("skipped: market state unknown"), FallbackErr: err}
		}
		return chain, nil
	}

	chain, primaryErr := a.primary.Chain(ctx, symbol, expiration, tier)
	if primaryErr == nil {
		return chain, nil
	}
	if !fallbackEligible(primaryErr) {
		return nil, primaryErr
	}
	a.logger.Printf("primary chain lookup for %s failed (%v), falling back to %s", symbol, primaryErr, a.fallback.Name())

	chain, fallbackErr := a.fallback.Chain(ctx, symbol, expiration, models.TierDelayed)
	if fallbackErr != nil {
		return nil, &DataUnavailableError{Symbol: symbol, PrimaryErr: primaryErr, FallbackErr: fallbackErr}
	}
	return chain, nil
}

// fallbackEligible decides whether a primary failure may be substituted by
// the delayed source. Subscription denials, timeouts, and empty results all
// qualify, as does any other gateway failure; only a request the caller
// itself cancelled is exempt.
func fallbackEligible(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	if gateway.IsSubscriptionDenied(err) || errors.Is(err, gateway.ErrNoData) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return true
}
