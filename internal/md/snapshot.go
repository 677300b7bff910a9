package md

// Snapshot is the per-symbol market state one tick decides on. Any field may
// be nil; a missing field is a no-signal outcome, not an error.
type Snapshot struct {
	LatestTrade  *Trade
	PrevDailyBar *Bar
	MinuteBar    *Bar
}

type Trade struct {
	Price float64
}

type Bar struct {
	Open   float64
	Close  float64
	Volume uint64
}
