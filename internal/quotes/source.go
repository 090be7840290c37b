// Package quotes provides the quote source adapter: a uniform price and
// option chain lookup over the primary gateway source and the delayed
// fallback provider, with explicit fallback policy and source provenance
// tagging on every result.
package quotes

import (
	"context"
	"fmt"
	"time"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/models"
)

// Source is the capability shared by the two quote backends.
type Source interface {
	Name() string
	Price(ctx context.Context, symbol string, tier models.Tier) (*models.Quote, error)
	Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*models.OptionChain, error)
}

// GatewaySource serves primary quotes (live or frozen) from the broker
// gateway session.
type GatewaySource struct {
	session gateway.Session
}

// Ensure GatewaySource implements Source at compile time.
var _ Source = (*GatewaySource)(nil)

// NewGatewaySource wraps the session as the primary quote source.
func NewGatewaySource(session gateway.Session) *GatewaySource {
	return &GatewaySource{session: session}
}

// Name identifies the source in logs and errors.
func (g *GatewaySource) Name() string { return "gateway" }

// Price fetches a quote at the requested tier. Frozen snapshots price
// off the settled close; live ticks price off the last trade.
func (g *GatewaySource) Price(ctx context.Context, symbol string, tier models.Tier) (*models.Quote, error) {
	item, err := g.session.Price(ctx, symbol, tier)
	if err != nil {
		return nil, err
	}

	price := item.Last
	if tier == models.TierFrozen && item.Close > 0 {
		price = item.Close
	}
	if price <= 0 {
		// Brokers return zero/null "live" prices outside the session.
		return nil, fmt.Errorf("%w: zero price for %s at tier %s", gateway.ErrNoData, symbol, tier)
	}

	return &models.Quote{
		Symbol:    item.Symbol,
		Price:     price,
		Bid:       item.Bid,
		Ask:       item.Ask,
		Timestamp: unixOrNow(item.UpdatedAt),
		Source:    tier.SourceTag(),
	}, nil
}

// Chain fetches the option chain at the requested tier. The whole chain is
// tagged with the one source that served it.
func (g *GatewaySource) Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*models.OptionChain, error) {
	payload, err := g.session.Chain(ctx, symbol, expiration, tier)
	if err != nil {
		return nil, err
	}
	return chainFromPayload(payload, tier.SourceTag())
}

func chainFromPayload(payload *gateway.ChainPayload, source models.QuoteSource) (*models.OptionChain, error) {
	exp, err := time.Parse("2006-01-02", payload.Expiration)
	if err != nil {
		return nil, fmt.Errorf("parsing chain expiration %q: %w", payload.Expiration, err)
	}

	chain := &models.OptionChain{
		Underlying:      payload.Underlying,
		UnderlyingPrice: payload.UnderlyingPrice,
		Expiration:      exp,
		Source:          source,
		FetchedAt:       unixOrNow(payload.UpdatedAt),
	}
	for _, opt := range payload.Option {
		right := models.OptionRight(opt.OptionType)
		if !right.Valid() {
			continue
		}
		contractExp := exp
		if opt.ExpirationDate != "" {
			if e, perr := time.Parse("2006-01-02", opt.ExpirationDate); perr == nil {
				contractExp = e
			}
		}
		chain.Contracts = append(chain.Contracts, models.OptionContract{
			Symbol:            opt.Symbol,
			Underlying:        payload.Underlying,
			Expiration:        contractExp,
			Strike:            opt.Strike,
			Right:             right,
			Bid:               opt.Bid,
			Ask:               opt.Ask,
			Last:              opt.Last,
			ImpliedVolatility: opt.MidIV,
		})
	}
	chain.Dedupe()
	return chain, nil
}

func unixOrNow(ts int64) time.Time {
	if ts <= 0 {
		return time.Now().UTC()
	}
	return time.Unix(ts, 0).UTC()
}
