package portfolio

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"testing"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/models"
)

// mockReporterSession implements gateway.Session for reporter testing
type mockReporterSession struct {
	positions    []gateway.PositionItem
	positionsErr error
	values       []gateway.AccountValue
	valuesErr    error
}

// Compile-time interface compliance check
var _ gateway.Session = (*mockReporterSession)(nil)

func (m *mockReporterSession) Price(ctx context.Context, symbol string, tier models.Tier) (*gateway.QuoteItem, error) {
	return nil, errors.New("not implemented")
}

func (m *mockReporterSession) Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*gateway.ChainPayload, error) {
	return nil, errors.New("not implemented")
}

func (m *mockReporterSession) Positions(ctx context.Context) ([]gateway.PositionItem, error) {
	return m.positions, m.positionsErr
}

func (m *mockReporterSession) AccountValues(ctx context.Context) ([]gateway.AccountValue, error) {
	return m.values, m.valuesErr
}

func (m *mockReporterSession) PlaceOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.OrderConfirmation, error) {
	return nil, errors.New("not implemented")
}

func (m *mockReporterSession) Clock(ctx context.Context) (*gateway.ClockPayload, error) {
	return nil, errors.New("not implemented")
}

func quietLog() *log.Logger { return log.New(io.Discard, "", 0) }

func TestPositions(t *testing.T) {
	mock := &mockReporterSession{positions: []gateway.PositionItem{
		{Symbol: "AAPL", SecType: "STK", Quantity: 200, AverageCost: 150.5, MarketValue: 37464, UnrealizedPnL: 7364},
		{Symbol: "AAPL260918P00088000", SecType: "OPT", Quantity: -1, AverageCost: 145, MarketValue: -200, UnrealizedPnL: -55},
		{Symbol: "EURUSD", SecType: "CASH", Quantity: 10000}, // unsupported, skipped
	}}
	r := NewReporter(mock, quietLog())

	positions, err := r.Positions(context.Background())
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) != 2 {
		t.Fatalf("got %d positions, want 2", len(positions))
	}
	if positions[0].Kind != models.KindStock || positions[1].Kind != models.KindOption {
		t.Errorf("kinds = %s, %s", positions[0].Kind, positions[1].Kind)
	}
	if !positions[1].IsShort() {
		t.Error("the option leg should be short")
	}
}

func TestPositionsFlatAccount(t *testing.T) {
	r := NewReporter(&mockReporterSession{}, quietLog())
	positions, err := r.Positions(context.Background())
	if err != nil {
		t.Fatalf("Positions: %v", err)
	}
	if len(positions) != 0 {
		t.Errorf("positions = %+v, want empty", positions)
	}
}

func TestPositionsGatewayError(t *testing.T) {
	mock := &mockReporterSession{positionsErr: errors.New("bridge down")}
	r := NewReporter(mock, quietLog())

	_, err := r.Positions(context.Background())
	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("err = %T, want gateway.Error", err)
	}
	if gwErr.Op != "positions" {
		t.Errorf("op = %s", gwErr.Op)
	}
}

func TestStockPositions(t *testing.T) {
	mock := &mockReporterSession{positions: []gateway.PositionItem{
		{Symbol: "AAPL", SecType: "STK", Quantity: 200},
		{Symbol: "AAPL260918P00088000", SecType: "OPT", Quantity: -1},
	}}
	r := NewReporter(mock, quietLog())

	stocks, err := r.StockPositions(context.Background())
	if err != nil {
		t.Fatalf("StockPositions: %v", err)
	}
	if len(stocks) != 1 || stocks[0].Symbol != "AAPL" {
		t.Errorf("stocks = %+v", stocks)
	}
}

func TestAccountSummary(t *testing.T) {
	mock := &mockReporterSession{values: []gateway.AccountValue{
		{Tag: "NetLiquidation", Value: "125000.50"},
		{Tag: "TotalCashValue", Value: "43250.00"},
		{Tag: "FullInitMarginReq", Value: "25000.10"},
		{Tag: "ExcessLiquidity", Value: "80000.00"}, // unmapped, ignored
		{Tag: "Cushion", Value: "n/a"},              // unparseable, skipped
	}}
	r := NewReporter(mock, quietLog())

	summary, err := r.AccountSummary(context.Background())
	if err != nil {
		t.Fatalf("AccountSummary: %v", err)
	}
	if summary.NetLiquidation != 125000.50 || summary.Cash != 43250.00 || summary.MarginUsed != 25000.10 {
		t.Errorf("summary = %+v", summary)
	}
	want := 25000.10 / 125000.50
	if math.Abs(summary.LeverageRatio-want) > 1e-9 {
		t.Errorf("leverage = %v, want %v", summary.LeverageRatio, want)
	}
}

func TestAccountSummaryZeroNLV(t *testing.T) {
	r := NewReporter(&mockReporterSession{values: []gateway.AccountValue{
		{Tag: "FullInitMarginReq", Value: "100.00"},
	}}, quietLog())

	summary, err := r.AccountSummary(context.Background())
	if err != nil {
		t.Fatalf("AccountSummary: %v", err)
	}
	if summary.LeverageRatio != 0 {
		t.Errorf("leverage = %v, must not divide by zero", summary.LeverageRatio)
	}
}
