package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/models"
)

// mockGatewaySession implements gateway.Session for source testing
type mockGatewaySession struct {
	quote    *gateway.QuoteItem
	quoteErr error
	chain    *gateway.ChainPayload
	chainErr error

	lastTier models.Tier
}

// Compile-time interface compliance check
var _ gateway.Session = (*mockGatewaySession)(nil)

func (m *mockGatewaySession) Price(ctx context.Context, symbol string, tier models.Tier) (*gateway.QuoteItem, error) {
	m.lastTier = tier
	return m.quote, m.quoteErr
}

func (m *mockGatewaySession) Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*gateway.ChainPayload, error) {
	m.lastTier = tier
	return m.chain, m.chainErr
}

func (m *mockGatewaySession) Positions(ctx context.Context) ([]gateway.PositionItem, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGatewaySession) AccountValues(ctx context.Context) ([]gateway.AccountValue, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGatewaySession) PlaceOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderConfirmation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockGatewaySession) Clock(ctx context.Context) (*gateway.ClockPayload, error) {
	return nil, errors.New("not implemented")
}

func TestGatewaySourcePriceLive(t *testing.T) {
	mock := &mockGatewaySession{quote: &gateway.QuoteItem{
		Symbol: "AAPL", Last: 187.32, Bid: 187.30, Ask: 187.35, Close: 186.10, UpdatedAt: 1767200000,
	}}
	source := NewGatewaySource(mock)

	quote, err := source.Price(context.Background(), "AAPL", models.TierLive)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if quote.Price != 187.32 {
		t.Errorf("live price = %v, want last trade", quote.Price)
	}
	if quote.Source != models.SourcePrimaryLive {
		t.Errorf("source = %s", quote.Source)
	}
}

func TestGatewaySourcePriceFrozenUsesClose(t *testing.T) {
	mock := &mockGatewaySession{quote: &gateway.QuoteItem{
		Symbol: "AAPL", Last: 187.32, Close: 186.10,
	}}
	source := NewGatewaySource(mock)

	quote, err := source.Price(context.Background(), "AAPL", models.TierFrozen)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if quote.Price != 186.10 {
		t.Errorf("frozen price = %v, want settled close", quote.Price)
	}
	if quote.Source != models.SourcePrimaryFrozen {
		t.Errorf("source = %s", quote.Source)
	}
}

func TestGatewaySourceZeroPrice(t *testing.T) {
	// Brokers return zeroed "live" rows outside the session.
	mock := &mockGatewaySession{quote: &gateway.QuoteItem{Symbol: "AAPL"}}
	source := NewGatewaySource(mock)

	_, err := source.Price(context.Background(), "AAPL", models.TierLive)
	if !errors.Is(err, gateway.ErrNoData) {
		t.Errorf("err = %v, want ErrNoData", err)
	}
}

func TestGatewaySourceChain(t *testing.T) {
	mock := &mockGatewaySession{chain: &gateway.ChainPayload{
		Underlying:      "AAPL",
		UnderlyingPrice: 187.32,
		Expiration:      "2026-09-18",
		Option: []gateway.OptionItem{
			{Symbol: "AAPL260918P00165000", OptionType: "put", Strike: 165, Bid: 1.10, Ask: 1.25},
			{Symbol: "AAPL260918P00165000", OptionType: "put", Strike: 165, Bid: 1.08}, // exchange dup
			{Symbol: "AAPL260918C00210000", OptionType: "call", Strike: 210, Bid: 0.95, Ask: 1.05},
			{Symbol: "bogus", OptionType: "warrant", Strike: 165}, // unknown right, dropped
		},
		UpdatedAt: 1767200000,
	}}
	source := NewGatewaySource(mock)

	chain, err := source.Chain(context.Background(), "AAPL", "2026-09-18", models.TierFrozen)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain.Contracts) != 2 {
		t.Fatalf("got %d contracts, want 2 (dedupe + right filter)", len(chain.Contracts))
	}
	if chain.Source != models.SourcePrimaryFrozen {
		t.Errorf("chain source = %s", chain.Source)
	}
	if chain.Contracts[0].Bid != 1.10 {
		t.Errorf("dedupe kept the wrong row: %+v", chain.Contracts[0])
	}
	if chain.Expiration.Format("2006-01-02") != "2026-09-18" {
		t.Errorf("expiration = %v", chain.Expiration)
	}
}

func TestGatewaySourceChainBadExpiration(t *testing.T) {
	mock := &mockGatewaySession{chain: &gateway.ChainPayload{
		Underlying: "AAPL",
		Expiration: "18-09-2026",
		Option:     []gateway.OptionItem{{OptionType: "put", Strike: 165}},
	}}
	source := NewGatewaySource(mock)
	if _, err := source.Chain(context.Background(), "AAPL", "", models.TierLive); err == nil {
		t.Error("expected error for malformed expiration")
	}
}

func TestDelayedSourcePrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/quote" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbol"); got != "AAPL" {
			t.Errorf("symbol = %q", got)
		}
		_, _ = w.Write([]byte(`{"symbol":"AAPL","price":186.90,"bid":186.85,"ask":186.95,"timestamp":1767199000}`))
	}))
	defer server.Close()

	source := NewDelayedSource(server.URL, 0)
	quote, err := source.Price(context.Background(), "AAPL", models.TierDelayed)
	if err != nil {
		t.Fatalf("Price: %v", err)
	}
	if quote.Price != 186.90 {
		t.Errorf("price = %v", quote.Price)
	}
	if quote.Source != models.SourceFallbackDelayed {
		t.Errorf("source = %s, delayed quotes must carry the fallback tag", quote.Source)
	}
}

func TestDelayedSourceChain(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chain" {
			t.Errorf("path = %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"underlying":"AAPL","underlying_price":186.90,"expiration":"2026-09-18","options":[
			{"symbol":"AAPL260918P00165000","option_type":"put","strike":165,"bid":1.05,"ask":1.20}
		]}`))
	}))
	defer server.Close()

	source := NewDelayedSource(server.URL, 0)
	chain, err := source.Chain(context.Background(), "AAPL", "2026-09-18", models.TierDelayed)
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if chain.Source != models.SourceFallbackDelayed || len(chain.Contracts) != 1 {
		t.Errorf("chain = %+v", chain)
	}
}

func TestDelayedSourceNoPrice(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"symbol":"ZZZZ","price":0}`))
	}))
	defer server.Close()

	source := NewDelayedSource(server.URL, 0)
	if _, err := source.Price(context.Background(), "ZZZZ", models.TierDelayed); err == nil {
		t.Error("expected error for zero delayed price")
	}
}
