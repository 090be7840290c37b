// Package orders provides the order placement facade over the gateway
// session. It owns the read-only gate: when the session is configured
// read-only, every placement fails here, before any network interaction.
package orders

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/openclaw/wheelhouse/internal/gateway"
	"github.com/openclaw/wheelhouse/internal/models"
)

// Side is the order direction.
type Side string

const (
	// SideBuy opens or closes with a purchase.
	SideBuy Side = "buy"
	// SideSell opens or closes with a sale.
	SideSell Side = "sell"
)

// Valid returns true if the Side is one of the defined constants
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Type is the order pricing type.
type Type string

const (
	// TypeMarket executes at the prevailing price.
	TypeMarket Type = "market"
	// TypeLimit executes at the limit price or better.
	TypeLimit Type = "limit"
)

// Valid returns true if the Type is one of the defined constants
func (t Type) Valid() bool { return t == TypeMarket || t == TypeLimit }

// ReadOnlyError means an order was attempted while the session is
// configured read-only.
type ReadOnlyError struct {
	Symbol string
}

func (e *ReadOnlyError) Error() string {
	return fmt.Sprintf("session is read-only: refusing to place order for %s", e.Symbol)
}

// MissingParameterError means a required order parameter was absent.
type MissingParameterError struct {
	Param string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("missing order parameter: %s", e.Param)
}

// Request describes a single-leg order on an option contract.
type Request struct {
	Contract   models.OptionContract
	Side       Side
	Quantity   int
	Type       Type
	LimitPrice float64 // required for limit orders, per share
}

// Handle identifies a submitted order.
type Handle struct {
	ID     int    `json:"id"`
	Status string `json:"status"`
	Tag    string `json:"tag"`
}

// Facade is the gated pass-through to the gateway's order endpoint.
type Facade struct {
	session  gateway.Session
	readonly bool
	logger   *log.Logger
}

// NewFacade creates the order facade. readonly mirrors the session
// configuration and is enforced here, not assumed from caller discipline.
func NewFacade(session gateway.Session, readonly bool, logger *log.Logger) *Facade {
	if logger == nil {
		logger = log.New(os.Stderr, "orders: ", log.LstdFlags)
	}
	return &Facade{session: session, readonly: readonly, logger: logger}
}

// ReadOnly reports whether the facade refuses order placement.
func (f *Facade) ReadOnly() bool { return f.readonly }

// Place validates and submits the order. The read-only gate fires first;
// limit orders without a price fail before submission. Each order carries
// a fresh idempotency tag.
func (f *Facade) Place(ctx context.Context, req Request) (*Handle, error) {
	symbol := req.Contract.Symbol
	if symbol == "" {
		symbol = models.FormatOSI(req.Contract.Underlying, req.Contract.Expiration, req.Contract.Right, req.Contract.Strike)
	}

	if f.readonly {
		return nil, &ReadOnlyError{Symbol: symbol}
	}
	if !req.Side.Valid() {
		return nil, fmt.Errorf("invalid order side %q", req.Side)
	}
	if !req.Type.Valid() {
		return nil, fmt.Errorf("invalid order type %q", req.Type)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("invalid order quantity %d (must be > 0)", req.Quantity)
	}
	if req.Type == TypeLimit && req.LimitPrice <= 0 {
		return nil, &MissingParameterError{Param: "limit_price"}
	}

	tag := "wheel-" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	wire := gateway.OrderRequest{
		Symbol:     symbol,
		Side:       string(req.Side),
		Quantity:   req.Quantity,
		OrderType:  string(req.Type),
		LimitPrice: roundToTick(req.LimitPrice, 0.01),
		Tag:        tag,
	}

	f.logger.Printf("placing %s %s order: %d x %s (limit %.2f, tag %s)",
		req.Side, req.Type, req.Quantity, symbol, wire.LimitPrice, tag)

	conf, err := f.session.PlaceOrder(ctx, wire)
	if err != nil {
		return nil, &gateway.Error{Op: "place_order", Err: err}
	}
	return &Handle{ID: conf.ID, Status: conf.Status, Tag: tag}, nil
}

// roundToTick rounds x to the nearest tick increment.
func roundToTick(x, tick float64) float64 {
	if tick <= 0 {
		return x
	}
	return math.Round(x/tick) * tick
}
