// Package engine ties the rotator, market data gateway, signal evaluator,
// and broker into the scan loop, and keeps every open position covered by a
// trailing stop.
package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"scalper/internal/broker"
	"scalper/internal/config"
	"scalper/internal/md"
	"scalper/internal/metrics"
	"scalper/internal/signal"
	"scalper/internal/sizing"
	"scalper/internal/universe"

	"github.com/shopspring/decimal"
)

// Broker is the slice of the brokerage client the loop needs; tests inject
// fakes.
type Broker interface {
	Positions(ctx context.Context) ([]broker.Position, error)
	OpenOrders(ctx context.Context) ([]broker.Order, error)
	SubmitEntry(ctx context.Context, req broker.EntryRequest) (broker.OrderRef, error)
	SubmitExit(ctx context.Context, req broker.ExitRequest) (broker.OrderRef, error)
}

type SnapshotSource interface {
	Snapshots(ctx context.Context, symbols []string) (map[string]*md.Snapshot, error)
}

// candidate is the ephemeral per-tick ranking record; it does not outlive
// order submission.
type candidate struct {
	symbol     string
	reason     string
	limitPrice float64
	snapshot   *md.Snapshot
	minuteGain float64
}

type Engine struct {
	cfg         config.Config
	rotator     *universe.Rotator
	snapshots   SnapshotSource
	broker      Broker
	evaluator   signal.Evaluator
	decisions   *DecisionLogger
	runID       string
	orderSeqNum uint64
}

func New(cfg config.Config, rotator *universe.Rotator, snapshots SnapshotSource, brokerClient Broker, decisions *DecisionLogger) *Engine {
	return &Engine{
		cfg:       cfg,
		rotator:   rotator,
		snapshots: snapshots,
		broker:    brokerClient,
		evaluator: signal.Evaluator{
			MinPrice:        cfg.MinPrice,
			MaxPrice:        cfg.MaxPrice,
			MinPctUp:        cfg.MinPctUp,
			MinMinuteVolume: cfg.MinMinuteVolume,
			SlippageBps:     cfg.SlippageBps,
		},
		decisions: decisions,
		runID:     decisions.RunID(),
	}
}

// Run executes ticks strictly sequentially until the context ends. A new
// tick never starts before the previous tick's sleep completes.
func (e *Engine) Run(ctx context.Context) error {
	for {
		delay := e.tick(ctx)
		if err := broker.WaitForContext(ctx, delay); err != nil {
			return err
		}
	}
}

// tick runs one scan pass and returns how long to sleep before the next.
func (e *Engine) tick(ctx context.Context) time.Duration {
	metrics.TicksTotal.Inc()

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		log.Printf("[WARN] fetch positions failed: %v", err)
		positions = nil
	}
	metrics.OpenPositions.Set(float64(len(positions)))

	if len(positions) >= e.cfg.MaxOpenPositions {
		log.Printf("[INFO] max positions %d/%d, managing exits", len(positions), e.cfg.MaxOpenPositions)
		e.reconcileExits(ctx)
		return e.cfg.ScanInterval
	}

	batch := e.rotator.NextBatch(e.cfg.BatchSize)
	snapshots, err := e.snapshots.Snapshots(ctx, batch)
	if err != nil {
		log.Printf("[WARN] snapshot batch failed (%d syms): %v", len(batch), err)
		metrics.SnapshotFailures.Inc()
		return time.Second
	}
	metrics.SnapshotsFetched.Add(float64(len(snapshots)))

	candidates := make([]candidate, 0, len(batch))
	for _, symbol := range batch {
		snap := snapshots[symbol]
		decision := e.evaluator.Evaluate(snap)
		record := Decision{
			RunID:      e.runID,
			Timestamp:  time.Now().UTC(),
			Symbol:     symbol,
			Enter:      decision.Enter,
			Reason:     decision.Reason,
			LimitPrice: decision.LimitPrice,
			MinuteGain: signal.MinuteGain(snap),
		}
		if !decision.Enter {
			record.Result = "evaluated"
			e.decisions.Append(record)
			continue
		}
		candidates = append(candidates, candidate{
			symbol:     symbol,
			reason:     decision.Reason,
			limitPrice: decision.LimitPrice,
			snapshot:   snap,
			minuteGain: signal.MinuteGain(snap),
		})
	}

	// Strongest current-minute move first; ties keep batch order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].minuteGain > candidates[j].minuteGain
	})

	// Slot budget is measured once, at the start of the tick.
	slots := e.cfg.MaxOpenPositions - len(positions)
	if slots < 0 {
		slots = 0
	}
	if slots > len(candidates) {
		slots = len(candidates)
	}
	for _, c := range candidates[slots:] {
		e.decisions.Append(e.record(c, "skipped_no_slot", broker.OrderRef{}, ""))
	}
	for _, c := range candidates[:slots] {
		e.submitEntry(ctx, c)
	}

	e.reconcileExits(ctx)
	return e.cfg.ScanInterval
}

func (e *Engine) submitEntry(ctx context.Context, c candidate) {
	if c.snapshot == nil || c.snapshot.LatestTrade == nil {
		return
	}
	price := c.snapshot.LatestTrade.Price
	qty := sizing.Shares(price, e.cfg.DollarsPerTrade)

	ref, err := e.broker.SubmitEntry(ctx, broker.EntryRequest{
		Symbol:        c.symbol,
		Qty:           qty,
		LimitPrice:    decimal.NewFromFloat(c.limitPrice).Round(4),
		ClientOrderID: e.nextClientOrderID(),
		ExtendedHours: e.cfg.ExtendedHours,
	})
	if err != nil {
		result := "order_failed"
		if broker.IsRejection(err) {
			result = "order_rejected"
		}
		metrics.OrderRejections.WithLabelValues(c.symbol).Inc()
		log.Printf("[ERR] submit entry %s: %v", c.symbol, err)
		e.decisions.Append(e.record(c, result, broker.OrderRef{}, err.Error()))
		return
	}

	metrics.OrdersTotal.WithLabelValues(c.symbol, "buy").Inc()
	log.Printf("[ENTRY] %s @ ~%.4f qty=%s | %s | order_id=%s", c.symbol, c.limitPrice, qty, c.reason, ref.ID)
	e.decisions.Append(e.record(c, "order_submitted", ref, ""))
}

func (e *Engine) record(c candidate, result string, ref broker.OrderRef, detail string) Decision {
	return Decision{
		RunID:         e.runID,
		Timestamp:     time.Now().UTC(),
		Symbol:        c.symbol,
		Enter:         true,
		Reason:        c.reason,
		LimitPrice:    c.limitPrice,
		MinuteGain:    c.minuteGain,
		Result:        result,
		OrderID:       ref.ID,
		ClientOrderID: ref.ClientOrderID,
		Detail:        detail,
	}
}

func (e *Engine) nextClientOrderID() string {
	e.orderSeqNum++
	return fmt.Sprintf("%s-%d", e.runID, e.orderSeqNum)
}
