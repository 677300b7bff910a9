// Package broker wraps the Alpaca trading API: account state, positions,
// open orders, and order submission. The brokerage is the single source of
// truth; this client only reads state and submits requests.
package broker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"
)

const SideSell = "sell"

type EntryRequest struct {
	Symbol        string
	Qty           decimal.Decimal
	LimitPrice    decimal.Decimal
	ClientOrderID string
	ExtendedHours bool
}

type ExitRequest struct {
	Symbol       string
	Qty          decimal.Decimal
	TrailPercent decimal.Decimal
}

type OrderRef struct {
	ID            string
	ClientOrderID string
	Status        string
}

type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Side          string
	Status        string
}

type Position struct {
	Symbol string
	Qty    decimal.Decimal
}

type Account struct {
	AccountNumber string
	BuyingPower   float64
	Cash          float64
}

type Client struct {
	client *alpaca.Client
}

func New(apiKey, apiSecret, baseURL string) *Client {
	opts := alpaca.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &Client{client: alpaca.NewClient(opts)}
}

// SubmitEntry places a day-valid limit buy. Client-side rejections (422
// class) come back as errors the caller can recognize via IsRejection.
func (c *Client) SubmitEntry(ctx context.Context, req EntryRequest) (OrderRef, error) {
	qty := req.Qty
	limit := req.LimitPrice
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:        req.Symbol,
		Qty:           &qty,
		Side:          alpaca.Buy,
		Type:          alpaca.Limit,
		TimeInForce:   alpaca.Day,
		LimitPrice:    &limit,
		ClientOrderID: req.ClientOrderID,
		ExtendedHours: req.ExtendedHours,
	}

	order, err := c.client.PlaceOrder(orderReq)
	if err != nil {
		slog.Error("entry order failed", "symbol", req.Symbol, "qty", qty, "limit", limit, "error", err)
		return OrderRef{}, err
	}

	slog.Info("entry order submitted", "order_id", order.ID, "symbol", req.Symbol, "qty", qty, "limit", limit, "status", order.Status)
	return OrderRef{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
	}, nil
}

// SubmitExit places a day-valid trailing-stop sell for the full held
// quantity. Alpaca rejects extended_hours on trailing stops, so the flag is
// never set here.
func (c *Client) SubmitExit(ctx context.Context, req ExitRequest) (OrderRef, error) {
	qty := req.Qty
	trail := req.TrailPercent
	orderReq := alpaca.PlaceOrderRequest{
		Symbol:       req.Symbol,
		Qty:          &qty,
		Side:         alpaca.Sell,
		Type:         alpaca.TrailingStop,
		TimeInForce:  alpaca.Day,
		TrailPercent: &trail,
	}

	order, err := c.client.PlaceOrder(orderReq)
	if err != nil {
		slog.Error("exit order failed", "symbol", req.Symbol, "qty", qty, "trail_percent", trail, "error", err)
		return OrderRef{}, err
	}

	slog.Info("exit order submitted", "order_id", order.ID, "symbol", req.Symbol, "qty", qty, "trail_percent", trail, "status", order.Status)
	return OrderRef{
		ID:            order.ID,
		ClientOrderID: order.ClientOrderID,
		Status:        string(order.Status),
	}, nil
}

func (c *Client) OpenOrders(ctx context.Context) ([]Order, error) {
	req := alpaca.GetOrdersRequest{
		Status: "open",
	}
	orders, err := c.client.GetOrders(req)
	if err != nil {
		slog.Error("fetch open orders failed", "error", err)
		return nil, err
	}
	out := make([]Order, 0, len(orders))
	for _, order := range orders {
		out = append(out, Order{
			ID:            order.ID,
			ClientOrderID: order.ClientOrderID,
			Symbol:        order.Symbol,
			Side:          string(order.Side),
			Status:        string(order.Status),
		})
	}
	return out, nil
}

func (c *Client) Positions(ctx context.Context) ([]Position, error) {
	positions, err := c.client.GetPositions()
	if err != nil {
		slog.Error("fetch positions failed", "error", err)
		return nil, err
	}
	out := make([]Position, 0, len(positions))
	for _, pos := range positions {
		out = append(out, Position{Symbol: pos.Symbol, Qty: pos.Qty})
	}
	return out, nil
}

func (c *Client) Account(ctx context.Context) (Account, error) {
	acct, err := c.client.GetAccount()
	if err != nil {
		slog.Error("fetch account failed", "error", err)
		return Account{}, err
	}
	buyingPower, _ := acct.BuyingPower.Float64()
	cash, _ := acct.Cash.Float64()

	return Account{
		AccountNumber: acct.AccountNumber,
		BuyingPower:   buyingPower,
		Cash:          cash,
	}, nil
}

// IsRejection reports whether err is a client-side order rejection (422
// class): reportable, never retried, never fatal.
func IsRejection(err error) bool {
	var apiErr *alpaca.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
}

// WaitForContext sleeps for delay unless the context ends first.
func WaitForContext(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
