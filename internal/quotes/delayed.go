package quotes

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openclaw/wheelhouse/internal/models"
)

// DelayedSource is the fallback quote backend: a public delayed-data
// provider with a documented 15-20 minute delay. It ignores the requested
// tier; everything it serves is tagged fallback-delayed.
type DelayedSource struct {
	client   *http.Client
	endpoint string
}

// Ensure DelayedSource implements Source at compile time.
var _ Source = (*DelayedSource)(nil)

// defaultDelayedTimeout bounds fallback provider calls independently of
// the gateway timeout.
const defaultDelayedTimeout = 15 * time.Second

// NewDelayedSource creates the fallback source against the provider
// endpoint, e.g. "https://quote.example.com/v8".
func NewDelayedSource(endpoint string, timeout time.Duration) *DelayedSource {
	if timeout <= 0 {
		timeout = defaultDelayedTimeout
	}
	return &DelayedSource{
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(endpoint, "/"),
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (d *DelayedSource) WithHTTPClient(hc *http.Client) *DelayedSource {
	if hc != nil {
		d.client = hc
	}
	return d
}

// Name identifies the source in logs and errors.
func (d *DelayedSource) Name() string { return "delayed" }

type delayedQuotePayload struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Timestamp int64   `json:"timestamp"`
}

type delayedChainPayload struct {
	Underlying      string  `json:"underlying"`
	UnderlyingPrice float64 `json:"underlying_price"`
	Expiration      string  `json:"expiration"`
	Options         []struct {
		Symbol         string  `json:"symbol"`
		OptionType     string  `json:"option_type"`
		ExpirationDate string  `json:"expiration_date"`
		Strike         float64 `json:"strike"`
		Bid            float64 `json:"bid"`
		Ask            float64 `json:"ask"`
		Last           float64 `json:"last"`
		IV             float64 `json:"iv"`
	} `json:"options"`
}

// Price fetches a delayed quote for the symbol.
func (d *DelayedSource) Price(ctx context.Context, symbol string, _ models.Tier) (*models.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	var payload delayedQuotePayload
	if err := d.get(ctx, d.endpoint+"/quote?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	if payload.Price <= 0 {
		return nil, fmt.Errorf("delayed provider has no price for %s", symbol)
	}
	return &models.Quote{
		Symbol:    symbol,
		Price:     payload.Price,
		Bid:       payload.Bid,
		Ask:       payload.Ask,
		Timestamp: unixOrNow(payload.Timestamp),
		Source:    models.SourceFallbackDelayed,
	}, nil
}

// Chain fetches a delayed option chain for the symbol.
func (d *DelayedSource) Chain(ctx context.Context, symbol, expiration string, _ models.Tier) (*models.OptionChain, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	if expiration != "" {
		params.Set("expiration", expiration)
	}

	var payload delayedChainPayload
	if err := d.get(ctx, d.endpoint+"/chain?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	if len(payload.Options) == 0 {
		return nil, fmt.Errorf("delayed provider has no chain for %s", symbol)
	}

	exp, err := time.Parse("2006-01-02", payload.Expiration)
	if err != nil {
		return nil, fmt.Errorf("parsing delayed chain expiration %q: %w", payload.Expiration, err)
	}
	chain := &models.OptionChain{
		Underlying:      payload.Underlying,
		UnderlyingPrice: payload.UnderlyingPrice,
		Expiration:      exp,
		Source:          models.SourceFallbackDelayed,
		FetchedAt:       time.Now().UTC(),
	}
	for _, opt := range payload.Options {
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
			ImpliedVolatility: opt.IV,
		})
	}
	chain.Dedupe()
	return chain, nil
}

func (d *DelayedSource) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "wheelhouse/1.0 (+delayed)")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
		return fmt.Errorf("delayed provider error %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
