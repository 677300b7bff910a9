package engine

import (
	"context"
	"log"

	"scalper/internal/broker"
	"scalper/internal/metrics"

	"github.com/shopspring/decimal"
)

// reconcileExits submits a trailing stop for every open position without an
// open sell order. It trusts the latest open-orders listing: an exit the
// brokerage has not surfaced yet can lead to a duplicate stop, an accepted
// consequence of its eventual consistency. One symbol failing never blocks
// the rest.
func (e *Engine) reconcileExits(ctx context.Context) {
	orders, err := e.broker.OpenOrders(ctx)
	if err != nil {
		log.Printf("[WARN] reconcile open orders failed: %v", err)
		return
	}
	hasSell := make(map[string]bool, len(orders))
	for _, order := range orders {
		if order.Side == broker.SideSell {
			hasSell[order.Symbol] = true
		}
	}

	positions, err := e.broker.Positions(ctx)
	if err != nil {
		log.Printf("[WARN] reconcile positions failed: %v", err)
		return
	}

	trail := decimal.NewFromFloat(e.cfg.TrailPercent).Round(4)
	for _, pos := range positions {
		if hasSell[pos.Symbol] {
			continue
		}
		ref, err := e.broker.SubmitExit(ctx, broker.ExitRequest{
			Symbol:       pos.Symbol,
			Qty:          pos.Qty,
			TrailPercent: trail,
		})
		if err != nil {
			log.Printf("[ERR] trailing stop submit %s: %v", pos.Symbol, err)
			metrics.OrderRejections.WithLabelValues(pos.Symbol).Inc()
			continue
		}
		metrics.OrdersTotal.WithLabelValues(pos.Symbol, "sell").Inc()
		log.Printf("[EXIT] trailing stop submitted for %s at trail %s%% on qty %s order_id=%s", pos.Symbol, trail, pos.Qty, ref.ID)
	}
}
