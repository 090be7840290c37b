package wheel

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/openclaw/wheelhouse/internal/models"
)

// stubChainProvider implements ChainProvider with a canned chain
type stubChainProvider struct {
	chain *models.OptionChain
	err   error
	calls int
}

var _ ChainProvider = (*stubChainProvider)(nil)

func (s *stubChainProvider) GetChain(ctx context.Context, symbol, expiration string) (*models.OptionChain, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.chain, nil
}

// stubPositionReader implements PositionReader with a canned portfolio
type stubPositionReader struct {
	positions []models.Position
	err       error
}

var _ PositionReader = (*stubPositionReader)(nil)

func (s *stubPositionReader) Positions(ctx context.Context) ([]models.Position, error) {
	return s.positions, s.err
}

func quietLog() *log.Logger { return log.New(io.Discard, "", 0) }

func engineChain() *models.OptionChain {
	exp := time.Now().UTC().AddDate(0, 0, 30)
	return &models.OptionChain{
		Underlying:      "AAPL",
		UnderlyingPrice: 100,
		Expiration:      exp,
		Source:          models.SourcePrimaryLive,
		FetchedAt:       time.Now().UTC(),
		Contracts: []models.OptionContract{
			{Right: models.RightPut, Strike: 88, Expiration: exp, Bid: 1.45, Ask: 1.55},
			{Right: models.RightPut, Strike: 95, Expiration: exp, Bid: 2.80, Ask: 2.90},
			{Right: models.RightCall, Strike: 115, Expiration: exp, Bid: 0.95, Ask: 1.05},
			{Right: models.RightCall, Strike: 145, Expiration: exp, Bid: 0.10, Ask: 0.20},
		},
	}
}

func newTestEngine(data ChainProvider, portfolio PositionReader) *Engine {
	return NewEngine(data, portfolio, DefaultConfig(), quietLog())
}

func TestRecommendCSP(t *testing.T) {
	data := &stubChainProvider{chain: engineChain()}
	engine := newTestEngine(data, &stubPositionReader{})

	rec, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCSP)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Strategy != models.StrategyCSP || rec.Contract.Right != models.RightPut {
		t.Errorf("rec = %+v", rec)
	}
	if rec.Contract.Strike != 88 {
		t.Errorf("strike = %v, want the in-band put", rec.Contract.Strike)
	}
	if math.Abs(rec.Premium-1.50) > 1e-9 {
		t.Errorf("premium = %v, want bid/ask mid", rec.Premium)
	}
	if rec.Source != models.SourcePrimaryLive {
		t.Errorf("source = %s", rec.Source)
	}
	if rec.AnnualizedYield <= 0 {
		t.Errorf("yield = %v", rec.AnnualizedYield)
	}
	if rec.Rationale == "" {
		t.Error("rationale must be populated")
	}
}

func TestRecommendCSPIgnoresPositions(t *testing.T) {
	// A cash-secured put has no position precondition; holding stock does
	// not change the answer.
	data := &stubChainProvider{chain: engineChain()}
	holding := &stubPositionReader{positions: []models.Position{
		{Symbol: "AAPL", Kind: models.KindStock, Quantity: 500},
	}}
	engine := newTestEngine(data, holding)

	rec, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCSP)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if rec.Contract.Right != models.RightPut {
		t.Errorf("right = %s", rec.Contract.Right)
	}
}

func TestRecommendCCRequiresRoundLot(t *testing.T) {
	data := &stubChainProvider{chain: engineChain()}

	tests := []struct {
		name      string
		positions []models.Position
		wantErr   bool
	}{
		{"no positions", nil, true},
		{"odd lot", []models.Position{{Symbol: "AAPL", Kind: models.KindStock, Quantity: 99}}, true},
		{"different symbol", []models.Position{{Symbol: "MSFT", Kind: models.KindStock, Quantity: 500}}, true},
		{"option position does not count", []models.Position{{Symbol: "AAPL260918P00088000", Kind: models.KindOption, Quantity: 1}}, true},
		{"exact round lot", []models.Position{{Symbol: "AAPL", Kind: models.KindStock, Quantity: 100}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(data, &stubPositionReader{positions: tt.positions})
			rec, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCC)
			if tt.wantErr {
				var precondition *PreconditionError
				if !errors.As(err, &precondition) {
					t.Fatalf("err = %v, want PreconditionError", err)
				}
				if precondition.Strategy != models.StrategyCC {
					t.Errorf("error strategy = %s", precondition.Strategy)
				}
				return
			}
			if err != nil {
				t.Fatalf("Recommend: %v", err)
			}
			if rec.Contract.Right != models.RightCall || rec.Contract.Strike != 115 {
				t.Errorf("rec contract = %+v", rec.Contract)
			}
		})
	}
}

func TestRecommendNeverSwitchesStrategy(t *testing.T) {
	// With no stock held, a CC request fails; it must not come back as a
	// put recommendation.
	data := &stubChainProvider{chain: engineChain()}
	engine := newTestEngine(data, &stubPositionReader{})

	_, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCC)
	if err == nil {
		t.Fatal("expected PreconditionError")
	}
	if data.calls != 0 {
		t.Error("chain fetched although the precondition already failed")
	}
}

func TestRecommendUnknownStrategy(t *testing.T) {
	engine := newTestEngine(&stubChainProvider{chain: engineChain()}, &stubPositionReader{})
	if _, err := engine.Recommend(context.Background(), "AAPL", models.Strategy("strangle")); err == nil {
		t.Error("expected error for unknown strategy")
	}
}

func TestRecommendPropagatesChainError(t *testing.T) {
	wantErr := errors.New("both sources down")
	engine := newTestEngine(&stubChainProvider{err: wantErr}, &stubPositionReader{})
	if _, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCSP); !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestRecommendDeterministic(t *testing.T) {
	// Identical chain input must yield an identical recommendation.
	data := &stubChainProvider{chain: engineChain()}
	engine := newTestEngine(data, &stubPositionReader{})

	first, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCSP)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	second, err := engine.Recommend(context.Background(), "AAPL", models.StrategyCSP)
	if err != nil {
		t.Fatalf("Recommend: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("recommendations differ:\n%+v\n%+v", first, second)
	}
}

func TestAnnualizedYield(t *testing.T) {
	// 1.50 premium on a 88 strike over 30 days.
	got := annualizedYield(1.50, 88, 30)
	want := 1.50 / 88 * 365 / 30
	if got != want {
		t.Errorf("yield = %v, want %v", got, want)
	}

	if annualizedYield(0, 88, 30) != 0 {
		t.Error("zero premium yields zero")
	}
	// Same-day expiry is floored at one day, not a divide-by-zero.
	if annualizedYield(1.50, 88, 0) != 1.50/88*365 {
		t.Error("dte 0 must be treated as 1")
	}
}
