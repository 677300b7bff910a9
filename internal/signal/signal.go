// Package signal holds the momentum gate chain. Evaluation is a pure
// function over a snapshot: no I/O, no mutable state.
package signal

import (
	"fmt"

	"scalper/internal/md"
)

// Decision is what one evaluation yields. Reason strings are observable
// behavior: they end up in the decision log.
type Decision struct {
	Enter      bool
	Reason     string
	LimitPrice float64
}

// Evaluator applies the gates in a fixed order; the first failing gate wins
// and each gate assumes every prior gate passed.
type Evaluator struct {
	MinPrice        float64
	MaxPrice        float64
	MinPctUp        float64
	MinMinuteVolume uint64
	SlippageBps     float64
}

func (e Evaluator) Evaluate(snap *md.Snapshot) Decision {
	if snap == nil {
		return Decision{Reason: "no snapshot"}
	}
	if snap.LatestTrade == nil || snap.LatestTrade.Price == 0 {
		return Decision{Reason: "no last trade"}
	}
	last := snap.LatestTrade.Price
	if snap.PrevDailyBar == nil || snap.PrevDailyBar.Close <= 0 {
		return Decision{Reason: "no prev close"}
	}
	prevClose := snap.PrevDailyBar.Close
	if last < e.MinPrice || last > e.MaxPrice {
		return Decision{Reason: "price filter"}
	}
	pctUp := (last - prevClose) / prevClose * 100.0
	if pctUp < e.MinPctUp {
		return Decision{Reason: fmt.Sprintf("pct_up %.2f%% < %g%%", pctUp, e.MinPctUp)}
	}
	if snap.MinuteBar != nil && snap.MinuteBar.Close < snap.MinuteBar.Open {
		return Decision{Reason: "red last minute"}
	}
	var minuteVolume uint64
	if snap.MinuteBar != nil {
		minuteVolume = snap.MinuteBar.Volume
	}
	if minuteVolume < e.MinMinuteVolume {
		return Decision{Reason: fmt.Sprintf("minute vol %d < %d", minuteVolume, e.MinMinuteVolume)}
	}

	// Chase the move at a slight premium, capped by the limit.
	limit := last * (1.0 + e.SlippageBps/10000.0)
	return Decision{
		Enter:      true,
		Reason:     fmt.Sprintf("pct_up=%.2f%% vol=%d", pctUp, minuteVolume),
		LimitPrice: limit,
	}
}

// MinuteGain ranks candidates by the current-minute move. A missing minute
// bar (or a zero open) ranks as 0%, never an error.
func MinuteGain(snap *md.Snapshot) float64 {
	if snap == nil || snap.MinuteBar == nil || snap.MinuteBar.Open == 0 {
		return 0
	}
	return (snap.MinuteBar.Close - snap.MinuteBar.Open) / snap.MinuteBar.Open * 100.0
}
