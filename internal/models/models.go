// Package models defines the market data and decision types shared across
// the wheel advisor: quotes with source provenance, option contracts and
// chains, recommendations, positions, and account snapshots.
package models

import (
	"fmt"
	"time"
)

// SharesPerContract is the standard US equity option multiplier.
const SharesPerContract = 100.0

// QuoteSource identifies where a quote came from. Every price that feeds a
// recommendation must carry one of these tags for auditability.
type QuoteSource string

const (
	// SourcePrimaryLive is a real-time tick from the broker gateway.
	SourcePrimaryLive QuoteSource = "primary-live"
	// SourcePrimaryFrozen is the last settled snapshot from the broker
	// gateway, served when the market is closed.
	SourcePrimaryFrozen QuoteSource = "primary-frozen"
	// SourceFallbackDelayed is a quote from the delayed fallback provider
	// (documented delay 15-20 minutes).
	SourceFallbackDelayed QuoteSource = "fallback-delayed"
)

// Quote is a point-in-time price observation for a symbol.
type Quote struct {
	Symbol    string      `json:"symbol"`
	Price     float64     `json:"price"`
	Bid       float64     `json:"bid"`
	Ask       float64     `json:"ask"`
	Timestamp time.Time   `json:"timestamp"`
	Source    QuoteSource `json:"source"`
}

// Staleness returns how old the quote is relative to now.
func (q *Quote) Staleness(now time.Time) time.Duration {
	if q.Timestamp.IsZero() {
		return 0
	}
	d := now.Sub(q.Timestamp)
	if d < 0 {
		return 0
	}
	return d
}

// OptionRight is the contract right: put or call.
type OptionRight string

const (
	// RightPut represents a put option contract
	RightPut OptionRight = "put"
	// RightCall represents a call option contract
	RightCall OptionRight = "call"
)

// Valid returns true if the OptionRight is one of the defined constants
func (r OptionRight) Valid() bool {
	return r == RightPut || r == RightCall
}

// OptionContract is a single listed option.
type OptionContract struct {
	// Symbol is the OSI-formatted option symbol when known, e.g.
	// AAPL261218P00100000.
	Symbol            string      `json:"symbol,omitempty"`
	Underlying        string      `json:"underlying"`
	Expiration        time.Time   `json:"expiration"`
	Strike            float64     `json:"strike"`
	Right             OptionRight `json:"right"`
	Bid               float64     `json:"bid"`
	Ask               float64     `json:"ask"`
	Last              float64     `json:"last"`
	ImpliedVolatility float64     `json:"implied_volatility,omitempty"`
}

// DTE returns calendar days to expiration, never negative.
func (c *OptionContract) DTE(now time.Time) int {
	n := now.UTC().Truncate(24 * time.Hour)
	exp := c.Expiration.UTC().Truncate(24 * time.Hour)
	days := int(exp.Sub(n).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

// OTMPercent returns how far out of the money the contract is, as a
// fraction of the underlying price. The sign convention is fixed per right:
// positive means out of the money for both puts and calls, so a put struck
// below spot and a call struck above spot both report positive moneyness.
func (c *OptionContract) OTMPercent(underlyingPrice float64) float64 {
	if underlyingPrice <= 0 {
		return 0
	}
	switch c.Right {
	case RightPut:
		return (underlyingPrice - c.Strike) / underlyingPrice
	case RightCall:
		return (c.Strike - underlyingPrice) / underlyingPrice
	default:
		return 0
	}
}

// MidPrice returns the best usable per-share price for the contract:
// bid/ask midpoint when both sides are quoted, the quoted side when only
// one is, and the last trade as a final resort.
func (c *OptionContract) MidPrice() float64 {
	switch {
	case c.Bid > 0 && c.Ask > 0:
		return (c.Bid + c.Ask) / 2
	case c.Bid > 0:
		return c.Bid
	case c.Ask > 0:
		return c.Ask
	case c.Last > 0:
		return c.Last
	default:
		return 0
	}
}

// HasLiquidity reports whether the contract has any usable quote at all.
// Contracts with zero bid, ask, and last are dead and must not be selected.
func (c *OptionContract) HasLiquidity() bool {
	return c.Bid > 0 || c.Ask > 0 || c.Last > 0
}

// OptionChain is the set of contracts for one underlying and expiration,
// fetched from a single source in a single call. Contracts are unique by
// (strike, right); the whole chain carries one source tag, never a mix.
type OptionChain struct {
	Underlying      string           `json:"underlying"`
	UnderlyingPrice float64          `json:"underlying_price"`
	Expiration      time.Time        `json:"expiration"`
	Contracts       []OptionContract `json:"contracts"`
	Source          QuoteSource      `json:"source"`
	FetchedAt       time.Time        `json:"fetched_at"`
}

// ByRight returns the contracts of the requested right, preserving order.
func (ch *OptionChain) ByRight(right OptionRight) []OptionContract {
	out := make([]OptionContract, 0, len(ch.Contracts))
	for _, c := range ch.Contracts {
		if c.Right == right {
			out = append(out, c)
		}
	}
	return out
}

// Dedupe drops duplicate (strike, right) entries, keeping the first seen.
// Gateways occasionally return the same contract on multiple exchanges.
func (ch *OptionChain) Dedupe() {
	type key struct {
		strike int64
		right  OptionRight
	}
	seen := make(map[key]bool, len(ch.Contracts))
	kept := ch.Contracts[:0]
	for _, c := range ch.Contracts {
		k := key{strike: int64(c.Strike*1000 + 0.5), right: c.Right}
		if seen[k] {
			continue
		}
		seen[k] = true
		kept = append(kept, c)
	}
	ch.Contracts = kept
}

// Strategy is the wheel leg being recommended.
type Strategy string

const (
	// StrategyCSP is a cash-secured put sale.
	StrategyCSP Strategy = "csp"
	// StrategyCC is a covered call sale.
	StrategyCC Strategy = "cc"
)

// Valid returns true if the Strategy is one of the defined constants
func (s Strategy) Valid() bool {
	return s == StrategyCSP || s == StrategyCC
}

// Right returns the option right the strategy sells.
func (s Strategy) Right() OptionRight {
	if s == StrategyCC {
		return RightCall
	}
	return RightPut
}

// Recommendation is the engine's answer to a single wheel query. It is
// built fresh per request and never persisted.
type Recommendation struct {
	Strategy        Strategy       `json:"strategy"`
	Symbol          string         `json:"symbol"`
	UnderlyingPrice float64        `json:"underlying_price"`
	Contract        OptionContract `json:"contract"`
	BandLow         float64        `json:"band_low"`
	BandHigh        float64        `json:"band_high"`
	OTMPercent      float64        `json:"otm_percent"`
	// Premium is per share; multiply by SharesPerContract for the
	// per-contract credit.
	Premium         float64     `json:"premium"`
	AnnualizedYield float64     `json:"annualized_yield"`
	DaysToExpiry    int         `json:"days_to_expiry"`
	Source          QuoteSource `json:"source"`
	Rationale       string      `json:"rationale"`
}

// InstrumentKind distinguishes stock from option positions.
type InstrumentKind string

const (
	// KindStock is an equity position.
	KindStock InstrumentKind = "stock"
	// KindOption is a listed option position.
	KindOption InstrumentKind = "option"
)

// Position is a read-only snapshot of one holding, mirrored from the
// gateway. Quantity is signed: negative means short.
type Position struct {
	// Symbol is the ticker for stock and the OSI symbol for options.
	Symbol        string         `json:"symbol"`
	Kind          InstrumentKind `json:"kind"`
	Quantity      float64        `json:"quantity"`
	AverageCost   float64        `json:"average_cost"`
	MarketValue   float64        `json:"market_value"`
	UnrealizedPnL float64        `json:"unrealized_pnl"`
}

// IsShort reports whether the position is short at least half a unit.
// The half-unit threshold tolerates float dust from the gateway.
func (p *Position) IsShort() bool {
	return p.Quantity <= -0.5
}

// CostToClose returns the current per-share cost to buy back a short
// option leg, derived from the position's marked value.
func (p *Position) CostToClose() float64 {
	qty := p.Quantity
	if qty < 0 {
		qty = -qty
	}
	if qty < 0.5 {
		return 0
	}
	mv := p.MarketValue
	if mv < 0 {
		mv = -mv
	}
	if p.Kind == KindOption {
		return mv / (qty * SharesPerContract)
	}
	return mv / qty
}

// RolloverPlan is the computed cost/benefit of replacing a short option
// with a candidate contract. Transient, computed on demand.
type RolloverPlan struct {
	Existing  Position       `json:"existing"`
	Candidate OptionContract `json:"candidate"`
	// NetCredit is per share: candidate bid minus the buy-to-close cost
	// of the existing leg. Positive is a net credit.
	NetCredit float64 `json:"net_credit"`
	// BreakevenShift is candidate strike minus existing strike.
	BreakevenShift float64 `json:"breakeven_shift"`
}

// IsCredit reports whether the plan collects more than it pays.
func (rp *RolloverPlan) IsCredit() bool { return rp.NetCredit > 0 }

// AccountSummary is a read-only snapshot of account-level metrics.
type AccountSummary struct {
	Cash           float64 `json:"cash"`
	NetLiquidation float64 `json:"net_liquidation"`
	MarginUsed     float64 `json:"margin_used"`
	LeverageRatio  float64 `json:"leverage_ratio"`
}

func (a AccountSummary) String() string {
	return fmt.Sprintf("cash=%.2f nlv=%.2f margin=%.2f leverage=%.2f",
		a.Cash, a.NetLiquidation, a.MarginUsed, a.LeverageRatio)
}
