// Package market classifies the primary market's state and maps it to the
// quote freshness tier the data layer is allowed to request.
package market

import (
	"context"
	"log"
	"os"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/models"
)

// State is the classified market state.
type State string

const (
	// StateOpen means the regular session is trading.
	StateOpen State = "open"
	// StateClosed means the regular session is not trading (including
	// pre/post market, where live ticks would be stale or zeroed).
	StateClosed State = "closed"
	// StateUnknown means the clock could not be determined. The data
	// layer degrades straight to the delayed fallback rather than guess.
	StateUnknown State = "unknown"
)

// Gateway clock state strings
const (
	clockStateOpen       = "open"
	clockStateClosed     = "closed"
	clockStatePreMarket  = "premarket"
	clockStatePostMarket = "postmarket"
)

// Classifier determines the market state from the gateway clock.
type Classifier struct {
	session gateway.Session
	logger  *log.Logger
}

// NewClassifier creates a market state classifier backed by the session.
func NewClassifier(session gateway.Session, logger *log.Logger) *Classifier {
	if logger == nil {
		logger = log.New(os.Stderr, "market: ", log.LstdFlags)
	}
	return &Classifier{session: session, logger: logger}
}

// Classify returns the current market state. A clock failure is reported
// as StateUnknown, never as a guess in either direction.
func (c *Classifier) Classify(ctx context.Context) State {
	clock, err := c.session.Clock(ctx)
	if err != nil {
		c.logger.Printf("market clock unavailable, classifying as unknown: %v", err)
		return StateUnknown
	}
	switch clock.State {
	case clockStateOpen:
		return StateOpen
	case clockStateClosed, clockStatePreMarket, clockStatePostMarket:
		return StateClosed
	default:
		c.logger.Printf("unrecognized market clock state %q, classifying as unknown", clock.State)
		return StateUnknown
	}
}

// TierFor maps a market state to the quote tier the adapter may request.
// This is a hard rule, not a heuristic: live ticks are never requested
// when the market is closed, and an unknown clock degrades straight to the
// delayed source.
func TierFor(state State) models.Tier {
	switch state {
	case StateOpen:
		return models.TierLive
	case StateClosed:
		return models.TierFrozen
	default:
		return models.TierDelayed
	}
}
