// Package gateway provides the broker session client used for market data,
// portfolio reads, and order submission. The process owns exactly one
// session, identified by a fixed client id, and every round trip through it
// is serialized: the gateway bridge does not tolerate overlapping requests
// from the same client identity.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/openclaw/wheelhouse/internal/models"
)

// ErrNoData is returned when the gateway answers successfully but has no
// quote or chain rows for the requested symbol. Callers treat it the same
// as a source failure and apply the fallback policy.
var ErrNoData = errors.New("gateway returned no data")

// APIError represents a gateway API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gateway error %d: %s", e.Status, e.Body)
}

// IsSubscriptionDenied reports whether the error is the gateway refusing a
// market data request for entitlement reasons. These are permanent for the
// session and must trigger the fallback source, not a retry.
func IsSubscriptionDenied(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusPaymentRequired || apiErr.Status == http.StatusForbidden
	}
	return false
}

// Error wraps a failed gateway operation with the op name so callers can
// render a one-line explanation without inspecting internals.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return fmt.Sprintf("gateway %s: %v", e.Op, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// Session is the request/response contract with the broker gateway. The
// concrete Client implements it; tests inject mocks.
type Session interface {
	Price(ctx context.Context, symbol string, tier models.Tier) (*QuoteItem, error)
	Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*ChainPayload, error)
	Positions(ctx context.Context) ([]PositionItem, error)
	AccountValues(ctx context.Context) ([]AccountValue, error)
	PlaceOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error)
	Clock(ctx context.Context) (*ClockPayload, error)
}

// Client is the HTTP client for the local gateway bridge. Safe for
// concurrent use; a mutex serializes all round trips.
type Client struct {
	client   *http.Client
	baseURL  string
	clientID int
	timeout  time.Duration
	mu       sync.Mutex
}

// Ensure Client implements Session at compile time.
var _ Session = (*Client)(nil)

// DefaultTimeout bounds every gateway round trip when no custom timeout is
// configured. A timed-out call is abandoned locally, never retried here.
const DefaultTimeout = 10 * time.Second

// Connect builds a session client for the gateway bridge at host:port.
// The connection itself is lazy; the first call surfaces reachability.
func Connect(host string, port, clientID int) *Client {
	return ConnectWithTimeout(host, port, clientID, DefaultTimeout)
}

// ConnectWithTimeout builds a session client with a custom per-call timeout.
func ConnectWithTimeout(host string, port, clientID int, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:  fmt.Sprintf("http://%s/v1", joinHostPort(host, port)),
		clientID: clientID,
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
}

// WithHTTPClient allows overriding the HTTP client (tests, custom transport).
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc != nil {
		c.client = hc
	}
	return c
}

// WithBaseURL overrides the bridge URL (tests against httptest servers).
func (c *Client) WithBaseURL(base string) *Client {
	if base != "" {
		c.baseURL = strings.TrimRight(base, "/")
	}
	return c
}

func joinHostPort(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]" // bare IPv6 literal
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// ============ Gateway payloads ============

// Handle single-object vs array responses from the bridge
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

// QuoteItem is a single quote row from the gateway.
type QuoteItem struct {
	Symbol    string  `json:"symbol"`
	Last      float64 `json:"last"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Close     float64 `json:"close"`
	UpdatedAt int64   `json:"updated_at"` // unix seconds
}

type quotesResponse struct {
	Quotes struct {
		Quote singleOrArray[QuoteItem] `json:"quote"`
	} `json:"quotes"`
}

// OptionItem is a single option row in a gateway chain response.
type OptionItem struct {
	Symbol         string  `json:"symbol"`
	Underlying     string  `json:"underlying"`
	OptionType     string  `json:"option_type"` // put | call
	ExpirationDate string  `json:"expiration_date"`
	Strike         float64 `json:"strike"`
	Bid            float64 `json:"bid"`
	Ask            float64 `json:"ask"`
	Last           float64 `json:"last"`
	MidIV          float64 `json:"mid_iv"`
}

// ChainPayload is the gateway's option chain response for one underlying
// and expiration.
type ChainPayload struct {
	Underlying      string                   `json:"underlying"`
	UnderlyingPrice float64                  `json:"underlying_price"`
	Expiration      string                   `json:"expiration"`
	Option          singleOrArray[OptionItem] `json:"option"`
	UpdatedAt       int64                    `json:"updated_at"`
}

type chainResponse struct {
	Chain ChainPayload `json:"chain"`
}

// PositionItem is a single position row from the gateway.
type PositionItem struct {
	Symbol        string  `json:"symbol"`
	SecType       string  `json:"sec_type"` // STK | OPT
	Quantity      float64 `json:"quantity"`
	AverageCost   float64 `json:"average_cost"`
	MarketValue   float64 `json:"market_value"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// positionsWrapper tolerates the bridge returning "null" for flat accounts.
type positionsWrapper struct {
	Position singleOrArray[PositionItem] `json:"position"`
}

func (pw *positionsWrapper) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, []byte(`null`)) || bytes.Equal(trimmed, []byte(`"null"`)) {
		*pw = positionsWrapper{}
		return nil
	}
	type normalWrapper positionsWrapper
	return json.Unmarshal(b, (*normalWrapper)(pw))
}

type positionsResponse struct {
	Positions positionsWrapper `json:"positions"`
}

// AccountValue is one tagged account metric, mirroring the gateway's
// tag/value account summary rows.
type AccountValue struct {
	Tag      string `json:"tag"`
	Value    string `json:"value"`
	Currency string `json:"currency,omitempty"`
}

// Float parses the metric value; gateway account values are decimal strings.
func (v AccountValue) Float() (float64, error) {
	return strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
}

type accountResponse struct {
	Account struct {
		Value singleOrArray[AccountValue] `json:"value"`
	} `json:"account"`
}

// OrderRequest is the wire form of an order submission.
type OrderRequest struct {
	Symbol     string  // OSI for options, ticker for stock
	Side       string  // buy | sell
	Quantity   int
	OrderType  string  // market | limit
	LimitPrice float64 // required for limit
	Tag        string  // idempotency tag
}

// OrderConfirmation is the gateway's acknowledgment of a submitted order.
type OrderConfirmation struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Tag    string `json:"tag,omitempty"`
}

type orderResponse struct {
	Order OrderConfirmation `json:"order"`
}

// ClockPayload is the gateway market clock snapshot.
type ClockPayload struct {
	State      string `json:"state"` // open | closed | premarket | postmarket
	Timestamp  int64  `json:"timestamp"`
	NextChange string `json:"next_change,omitempty"`
}

type clockResponse struct {
	Clock ClockPayload `json:"clock"`
}

// ============ Session methods ============

// Price fetches a quote snapshot for the symbol at the requested freshness
// tier. The delayed tier is served by the fallback provider, never by the
// gateway; asking for it here is a programming error.
func (c *Client) Price(ctx context.Context, symbol string, tier models.Tier) (*QuoteItem, error) {
	dataType, err := tierParam(tier)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", dataType)
	endpoint := c.baseURL + "/marketdata/quote?" + params.Encode()

	var response quotesResponse
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	quotes := response.Quotes.Quote
	if len(quotes) == 0 {
		return nil, fmt.Errorf("%w: no quote for %s", ErrNoData, symbol)
	}
	first := quotes[0]
	return &first, nil
}

// Chain fetches the option chain for a symbol. An empty expiration asks the
// gateway for the nearest listed expiry.
func (c *Client) Chain(ctx context.Context, symbol, expiration string, tier models.Tier) (*ChainPayload, error) {
	dataType, err := tierParam(tier)
	if err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("type", dataType)
	if expiration != "" {
		params.Set("expiration", expiration)
	}
	endpoint := c.baseURL + "/marketdata/chain?" + params.Encode()

	var response chainResponse
	if err := c.get(ctx, endpoint, &response); err != nil {
		return nil, err
	}
	if len(response.Chain.Option) == 0 {
		return nil, fmt.Errorf("%w: empty chain for %s", ErrNoData, symbol)
	}
	return &response.Chain, nil
}

// Positions fetches the current holdings. A flat account is an empty slice,
// not an error.
func (c *Client) Positions(ctx context.Context) ([]PositionItem, error) {
	var response positionsResponse
	if err := c.get(ctx, c.baseURL+"/portfolio/positions", &response); err != nil {
		return nil, err
	}
	return []PositionItem(response.Positions.Position), nil
}

// AccountValues fetches the tagged account metrics.
func (c *Client) AccountValues(ctx context.Context) ([]AccountValue, error) {
	var response accountResponse
	if err := c.get(ctx, c.baseURL+"/account/summary", &response); err != nil {
		return nil, err
	}
	return []AccountValue(response.Account.Value), nil
}

// PlaceOrder submits an order. The read-only gate lives in the orders
// facade, not here; this method assumes the caller is allowed to trade.
func (c *Client) PlaceOrder(ctx context.Context, req OrderRequest) (*OrderConfirmation, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", req.Side)
	params.Set("quantity", strconv.Itoa(req.Quantity))
	params.Set("type", req.OrderType)
	if req.OrderType == "limit" {
		params.Set("price", fmt.Sprintf("%.2f", req.LimitPrice))
	}
	if req.Tag != "" {
		params.Set("tag", req.Tag)
	}

	var response orderResponse
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/orders", params, &response); err != nil {
		return nil, err
	}
	return &response.Order, nil
}

// Clock fetches the market clock snapshot.
func (c *Client) Clock(ctx context.Context) (*ClockPayload, error) {
	var response clockResponse
	if err := c.get(ctx, c.baseURL+"/marketdata/clock", &response); err != nil {
		return nil, err
	}
	return &response.Clock, nil
}

func tierParam(tier models.Tier) (string, error) {
	switch tier {
	case models.TierLive:
		return "live", nil
	case models.TierFrozen:
		return "frozen", nil
	default:
		return "", fmt.Errorf("tier %q is not served by the gateway", tier)
	}
}

// ============ HTTP plumbing ============

func (c *Client) get(ctx context.Context, endpoint string, response interface{}) error {
	return c.do(ctx, http.MethodGet, endpoint, nil, response)
}

// do performs one serialized round trip with a bounded wait. In-flight
// requests cannot be cancelled on the broker side; on timeout they are
// abandoned locally.
func (c *Client) do(ctx context.Context, method, endpoint string, params url.Values, response interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var req *http.Request
	var err error
	if method == http.MethodPost && params != nil {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, strings.NewReader(params.Encode()))
		if err != nil {
			return err
		}
		req.Header.Add("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req, err = http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
		if err != nil {
			return err
		}
	}

	req.Header.Add("Accept", "application/json")
	req.Header.Add("X-Client-Id", strconv.Itoa(c.clientID))
	req.Header.Add("User-Agent", "wheelhouse/1.0 (+gateway)")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			log.Printf("Failed to close response body: %v", cerr)
		}
	}()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated &&
		resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		body, rerr := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if rerr != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, endpoint)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s", method, endpoint, string(body))}
	}

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(response); err != nil && err != io.EOF {
		return err
	}
	return nil
}
