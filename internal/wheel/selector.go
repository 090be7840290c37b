// Package wheel contains the decision logic for the options wheel: chain
// filtering and contract selection, the CSP/CC recommendation engine, and
// the rollover cost/benefit analyzer.
package wheel

import (
	"fmt"
	"time"

	"github.com/openclaw/wheelhouse/internal/models"
)

// bandEpsilon keeps inclusive band boundaries stable across float noise.
const bandEpsilon = 1e-9

// DefaultStalenessMax is how old a fetched chain may be before its quotes
// are treated as unusable.
const DefaultStalenessMax = 10 * time.Minute

// Band is an inclusive OTM moneyness band, expressed as fractions of the
// underlying price (0.10 = 10% out of the money).
type Band struct {
	Low  float64 `yaml:"low"`
	High float64 `yaml:"high"`
}

// Mid returns the midpoint of the band.
func (b Band) Mid() float64 { return (b.Low + b.High) / 2 }

// Contains reports whether the moneyness falls inside the band, inclusive
// at both edges.
func (b Band) Contains(m float64) bool {
	return m >= b.Low-bandEpsilon && m <= b.High+bandEpsilon
}

// Valid reports whether the band is well-formed.
func (b Band) Valid() bool { return b.Low >= 0 && b.High > b.Low }

// NoContractError means no contract in the chain fell inside the band.
// The band is never relaxed here; callers decide whether to widen.
type NoContractError struct {
	Underlying string
	Right      models.OptionRight
	Band       Band
}

func (e *NoContractError) Error() string {
	return fmt.Sprintf("no %s contract for %s within [%.0f%%, %.0f%%] OTM band",
		e.Right, e.Underlying, e.Band.Low*100, e.Band.High*100)
}

// Selector narrows a chain to in-band contracts and picks the best
// candidate deterministically.
type Selector struct {
	// StalenessMax rejects chains fetched longer ago than this.
	StalenessMax time.Duration

	now func() time.Time // test hook
}

// NewSelector creates a selector with the given chain staleness bound.
func NewSelector(stalenessMax time.Duration) *Selector {
	if stalenessMax <= 0 {
		stalenessMax = DefaultStalenessMax
	}
	return &Selector{StalenessMax: stalenessMax, now: time.Now}
}

// Select picks the contract of the requested right whose OTM moneyness
// falls inside the band, choosing by nearest-to-band-midpoint, then by
// richer bid, then by higher strike. The last tie-break makes the result
// deterministic regardless of chain ordering. Chains that are empty, stale
// beyond StalenessMax, or quoted zero everywhere yield NoContractError.
func (s *Selector) Select(chain *models.OptionChain, right models.OptionRight, band Band) (*models.OptionContract, error) {
	notFound := &NoContractError{Underlying: chain.Underlying, Right: right, Band: band}

	if chain.UnderlyingPrice <= 0 {
		return nil, notFound
	}
	if s.StalenessMax > 0 && !chain.FetchedAt.IsZero() && s.now().Sub(chain.FetchedAt) > s.StalenessMax {
		return nil, notFound
	}

	mid := band.Mid()
	var best *models.OptionContract
	var bestDist float64

	for i := range chain.Contracts {
		c := &chain.Contracts[i]
		if c.Right != right || !c.HasLiquidity() {
			continue
		}
		otm := c.OTMPercent(chain.UnderlyingPrice)
		if !band.Contains(otm) {
			continue
		}

		dist := otm - mid
		if dist < 0 {
			dist = -dist
		}
		if best == nil || dist < bestDist-bandEpsilon {
			best, bestDist = c, dist
			continue
		}
		if dist > bestDist+bandEpsilon {
			continue
		}
		// Equidistant from the midpoint: prefer the richer bid, then the
		// higher strike.
		switch {
		case c.Bid > best.Bid:
			best, bestDist = c, dist
		case c.Bid == best.Bid && c.Strike > best.Strike:
			best, bestDist = c, dist
		}
	}

	if best == nil {
		return nil, notFound
	}
	picked := *best
	return &picked, nil
}
