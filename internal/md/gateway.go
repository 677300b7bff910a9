// Package md fetches batch market snapshots with bounded retry.
package md

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

// RetryPolicy bounds how a failed snapshot fetch is retried: capped
// exponential backoff, fixed attempt budget.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

// Backoff returns the delay before retry number attempt (0-based).
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// CallError tags a failed remote call so callers can branch on the outcome
// instead of matching on error strings or status codes.
type CallError struct {
	RateLimited bool
	Rejected    bool
	StatusCode  int
	Err         error
}

func (e *CallError) Error() string {
	switch {
	case e.RateLimited:
		return fmt.Sprintf("rate limited: %v", e.Err)
	case e.Rejected:
		return fmt.Sprintf("request rejected: %v", e.Err)
	default:
		return fmt.Sprintf("service error: %v", e.Err)
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// Classify wraps a remote-call error as RateLimited, Rejected, or a plain
// service error based on the HTTP status the brokerage SDK reports.
func Classify(err error) *CallError {
	ce := &CallError{Err: err}
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) {
		ce.StatusCode = apiErr.StatusCode
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			ce.RateLimited = true
		case apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
			ce.Rejected = true
		}
	}
	return ce
}

type fetcher interface {
	fetch(symbols []string) (map[string]*Snapshot, error)
}

// Gateway wraps the market data service with the retry policy. Throttling
// and service errors are both retried; once the attempt budget is spent the
// failure surfaces as a single tick-level error.
type Gateway struct {
	api    fetcher
	policy RetryPolicy
}

// New builds a Gateway over the Alpaca market data REST API.
func New(apiKey, apiSecret, baseURL string, policy RetryPolicy) *Gateway {
	return &Gateway{api: newAlpacaFetcher(apiKey, apiSecret, baseURL), policy: policy}
}

func newGateway(api fetcher, policy RetryPolicy) *Gateway {
	return &Gateway{api: api, policy: policy}
}

// Snapshots returns a symbol→snapshot mapping; entries may be absent for
// symbols with no data.
func (g *Gateway) Snapshots(ctx context.Context, symbols []string) (map[string]*Snapshot, error) {
	var lastErr error
	for attempt := 0; attempt < g.policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := wait(ctx, g.policy.Backoff(attempt-1)); err != nil {
				return nil, err
			}
		}
		snapshots, err := g.api.fetch(symbols)
		if err == nil {
			return snapshots, nil
		}
		lastErr = Classify(err)
		slog.Warn("snapshot fetch failed", "symbols", len(symbols), "attempt", attempt+1, "error", lastErr)
	}
	return nil, fmt.Errorf("snapshots failed after %d attempts: %w", g.policy.MaxAttempts, lastErr)
}

func wait(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
