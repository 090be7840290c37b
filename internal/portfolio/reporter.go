// Package portfolio aggregates gateway position and account snapshots into
// summary views. It is a pure read layer: nothing is cached, nothing is
// mutated, and a failed gateway call surfaces as an error rather than a
// stale value.
package portfolio

import (
	"context"
	"log"
	"os"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/models"
)

// Account value tags served by the gateway.
const (
	tagNetLiquidation = "NetLiquidation"
	tagTotalCash      = "TotalCashValue"
	tagInitMargin     = "FullInitMarginReq"
)

// Reporter reads portfolio and account state through the session.
type Reporter struct {
	session gateway.Session
	logger  *log.Logger
}

// NewReporter creates a reporter over the gateway session.
func NewReporter(session gateway.Session, logger *log.Logger) *Reporter {
	if logger == nil {
		logger = log.New(os.Stderr, "portfolio: ", log.LstdFlags)
	}
	return &Reporter{session: session, logger: logger}
}

// Positions returns the current holdings as model positions. A flat
// account returns an empty slice.
func (r *Reporter) Positions(ctx context.Context) ([]models.Position, error) {
	items, err := r.session.Positions(ctx)
	if err != nil {
		return nil, &gateway.Error{Op: "positions", Err: err}
	}

	positions := make([]models.Position, 0, len(items))
	for _, item := range items {
		kind, ok := kindFromSecType(item.SecType)
		if !ok {
			r.logger.Printf("skipping position %s with unsupported security type %q", item.Symbol, item.SecType)
			continue
		}
		positions = append(positions, models.Position{
			Symbol:        item.Symbol,
			Kind:          kind,
			Quantity:      item.Quantity,
			AverageCost:   item.AverageCost,
			MarketValue:   item.MarketValue,
			UnrealizedPnL: item.UnrealizedPnL,
		})
	}
	return positions, nil
}

// StockPositions returns only the equity holdings.
func (r *Reporter) StockPositions(ctx context.Context) ([]models.Position, error) {
	all, err := r.Positions(ctx)
	if err != nil {
		return nil, err
	}
	stocks := all[:0]
	for _, p := range all {
		if p.Kind == models.KindStock {
			stocks = append(stocks, p)
		}
	}
	return stocks, nil
}

// AccountSummary aggregates the gateway's tagged account values into a
// snapshot. Missing tags read as zero; the leverage ratio is margin in use
// over net liquidation value.
func (r *Reporter) AccountSummary(ctx context.Context) (*models.AccountSummary, error) {
	values, err := r.session.AccountValues(ctx)
	if err != nil {
		return nil, &gateway.Error{Op: "account_values", Err: err}
	}

	summary := &models.AccountSummary{}
	for _, v := range values {
		f, perr := v.Float()
		if perr != nil {
			r.logger.Printf("skipping unparseable account value %s=%q: %v", v.Tag, v.Value, perr)
			continue
		}
		switch v.Tag {
		case tagNetLiquidation:
			summary.NetLiquidation = f
		case tagTotalCash:
			summary.Cash = f
		case tagInitMargin:
			summary.MarginUsed = f
		}
	}
	if summary.NetLiquidation > 0 {
		summary.LeverageRatio = summary.MarginUsed / summary.NetLiquidation
	}
	return summary, nil
}

func kindFromSecType(secType string) (models.InstrumentKind, bool) {
	switch secType {
	case "STK":
		return models.KindStock, true
	case "OPT":
		return models.KindOption, true
	default:
		return "", false
	}
}
