package wheel

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/openclaw/wheelhouse/internal/models"
)

// Default OTM moneyness bands for the two wheel legs.
var (
	// DefaultCSPBand targets puts 10-16% out of the money.
	DefaultCSPBand = Band{Low: 0.10, High: 0.16}
	// DefaultCCBand targets calls 10-30% out of the money.
	DefaultCCBand = Band{Low: 0.10, High: 0.30}
)

// PreconditionError means the strategy's entry precondition is unmet. The
// engine never silently switches strategy instead.
type PreconditionError struct {
	Strategy models.Strategy
	Symbol   string
	Reason   string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s precondition for %s: %s", e.Strategy, e.Symbol, e.Reason)
}

// ChainProvider is the data dependency of the engine: the quote source
// adapter in production, a fixture in tests.
type ChainProvider interface {
	GetChain(ctx context.Context, symbol, expiration string) (*models.OptionChain, error)
}

// PositionReader exposes current holdings for precondition checks.
// Satisfied by *portfolio.Reporter.
type PositionReader interface {
	Positions(ctx context.Context) ([]models.Position, error)
}

// Config holds the engine's strategy parameters.
type Config struct {
	CSPBand      Band
	CCBand       Band
	StalenessMax time.Duration
}

// DefaultConfig returns the stock wheel parameters.
func DefaultConfig() Config {
	return Config{
		CSPBand:      DefaultCSPBand,
		CCBand:       DefaultCCBand,
		StalenessMax: DefaultStalenessMax,
	}
}

// Engine produces wheel recommendations: sell a cash-secured put when the
// caller holds no stock, sell a covered call against an existing round lot.
type Engine struct {
	data      ChainProvider
	portfolio PositionReader
	selector  *Selector
	config    Config
	logger    *log.Logger
	now       func() time.Time // test hook
}

// NewEngine wires the recommendation engine.
func NewEngine(data ChainProvider, portfolio PositionReader, config Config, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.New(os.Stderr, "wheel: ", log.LstdFlags)
	}
	if !config.CSPBand.Valid() {
		config.CSPBand = DefaultCSPBand
	}
	if !config.CCBand.Valid() {
		config.CCBand = DefaultCCBand
	}
	return &Engine{
		data:      data,
		portfolio: portfolio,
		selector:  NewSelector(config.StalenessMax),
		config:    config,
		logger:    logger,
		now:       time.Now,
	}
}

// Recommend builds a recommendation for the requested strategy. CSP has no
// position precondition; CC requires at least one round lot of the
// underlying. Identical chain inputs produce identical recommendations.
func (e *Engine) Recommend(ctx context.Context, symbol string, strategy models.Strategy) (*models.Recommendation, error) {
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	band := e.config.CSPBand
	if strategy == models.StrategyCC {
		band = e.config.CCBand
		if err := e.checkCoveredCallPrecondition(ctx, symbol); err != nil {
			return nil, err
		}
	}

	chain, err := e.data.GetChain(ctx, symbol, "")
	if err != nil {
		return nil, err
	}

	contract, err := e.selector.Select(chain, strategy.Right(), band)
	if err != nil {
		return nil, err
	}

	otm := contract.OTMPercent(chain.UnderlyingPrice)
	premium := contract.MidPrice()
	dte := contract.DTE(e.now())
	yield := annualizedYield(premium, contract.Strike, dte)

	rec := &models.Recommendation{
		Strategy:        strategy,
		Symbol:          chain.Underlying,
		UnderlyingPrice: chain.UnderlyingPrice,
		Contract:        *contract,
		BandLow:         band.Low,
		BandHigh:        band.High,
		OTMPercent:      otm,
		Premium:         premium,
		AnnualizedYield: yield,
		DaysToExpiry:    dte,
		Source:          chain.Source,
	}
	rec.Rationale = rationale(rec)

	e.logger.Printf("recommendation for %s: %s strike %.2f (%.1f%% OTM), premium %.2f, source %s",
		symbol, strategy, contract.Strike, otm*100, premium, chain.Source)
	return rec, nil
}

func (e *Engine) checkCoveredCallPrecondition(ctx context.Context, symbol string) error {
	positions, err := e.portfolio.Positions(ctx)
	if err != nil {
		return err
	}
	for i := range positions {
		p := &positions[i]
		if p.Kind == models.KindStock && p.Symbol == symbol && p.Quantity >= models.SharesPerContract {
			return nil
		}
	}
	return &PreconditionError{
		Strategy: models.StrategyCC,
		Symbol:   symbol,
		Reason:   "no underlying position",
	}
}

// annualizedYield scales premium-over-collateral by 365/DTE. Advisory only;
// it assumes the position rides to expiry.
func annualizedYield(premium, strike float64, dte int) float64 {
	if premium <= 0 || strike <= 0 {
		return 0
	}
	if dte < 1 {
		dte = 1
	}
	return premium / strike * 365 / float64(dte)
}

// rationale renders the caller-facing explanation. Everything it states is
// reconstructable from the recommendation's structured fields.
func rationale(r *models.Recommendation) string {
	action := "sell put (cash-secured)"
	if r.Strategy == models.StrategyCC {
		action = "sell call (covered)"
	}
	return fmt.Sprintf("%s: %s strike %.2f is %.1f%% OTM (band %.0f-%.0f%%), premium $%.2f/share ($%.2f per contract), %d days to expiry, ~%.1f%% annualized; priced from %s data",
		action, r.Symbol, r.Contract.Strike, r.OTMPercent*100, r.BandLow*100, r.BandHigh*100,
		r.Premium, r.Premium*models.SharesPerContract, r.DaysToExpiry, r.AnnualizedYield*100, r.Source)
}
