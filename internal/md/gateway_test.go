package md

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
)

type scriptedFetcher struct {
	failures  int
	calls     int
	err       error
	snapshots map[string]*Snapshot
}

func (f *scriptedFetcher) fetch(symbols []string) (map[string]*Snapshot, error) {
	f.calls++
	if f.calls <= f.failures {
		return nil, f.err
	}
	return f.snapshots, nil
}

func testPolicy(attempts int) RetryPolicy {
	return RetryPolicy{MaxAttempts: attempts, BaseDelay: time.Millisecond, MaxDelay: 4 * time.Millisecond}
}

func TestSnapshotsRetriesTransientFailure(t *testing.T) {
	fetcher := &scriptedFetcher{
		failures:  2,
		err:       &alpaca.APIError{StatusCode: 500, Message: "upstream down"},
		snapshots: map[string]*Snapshot{"AAPL": {LatestTrade: &Trade{Price: 10}}},
	}
	gateway := newGateway(fetcher, testPolicy(5))

	snapshots, err := gateway.Snapshots(context.Background(), []string{"AAPL"})
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fetcher.calls)
	}
	if snapshots["AAPL"] == nil {
		t.Fatalf("expected AAPL snapshot in result")
	}
}

func TestSnapshotsExhaustsAttemptBudget(t *testing.T) {
	fetcher := &scriptedFetcher{
		failures: 10,
		err:      &alpaca.APIError{StatusCode: 429, Message: "rate limited"},
	}
	gateway := newGateway(fetcher, testPolicy(3))

	_, err := gateway.Snapshots(context.Background(), []string{"AAPL"})
	if err == nil {
		t.Fatalf("expected failure after exhausting attempts")
	}
	if fetcher.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", fetcher.calls)
	}
	var callErr *CallError
	if !errors.As(err, &callErr) || !callErr.RateLimited {
		t.Fatalf("expected rate limited classification, got %v", err)
	}
}

func TestSnapshotsStopsOnCancelledContext(t *testing.T) {
	fetcher := &scriptedFetcher{failures: 10, err: errors.New("boom")}
	gateway := newGateway(fetcher, RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour, MaxDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gateway.Snapshots(ctx, []string{"AAPL"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if fetcher.calls != 1 {
		t.Fatalf("expected a single attempt before the cancelled backoff, got %d", fetcher.calls)
	}
}

func TestBackoffSchedule(t *testing.T) {
	policy := DefaultRetryPolicy()
	want := []time.Duration{
		500 * time.Millisecond,
		time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		8 * time.Second,
	}
	for attempt, expected := range want {
		if got := policy.Backoff(attempt); got != expected {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, expected, got)
		}
	}
}

func TestClassify(t *testing.T) {
	rateLimited := Classify(&alpaca.APIError{StatusCode: 429})
	if !rateLimited.RateLimited || rateLimited.Rejected {
		t.Fatalf("expected rate limited classification, got %+v", rateLimited)
	}

	rejected := Classify(&alpaca.APIError{StatusCode: 422})
	if rejected.RateLimited || !rejected.Rejected {
		t.Fatalf("expected rejection classification, got %+v", rejected)
	}

	service := Classify(&alpaca.APIError{StatusCode: 503})
	if service.RateLimited || service.Rejected {
		t.Fatalf("expected service error classification, got %+v", service)
	}

	opaque := Classify(errors.New("connection reset"))
	if opaque.RateLimited || opaque.Rejected || opaque.StatusCode != 0 {
		t.Fatalf("expected opaque service error, got %+v", opaque)
	}
}
