package md

import (
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

type alpacaFetcher struct {
	client *marketdata.Client
}

func newAlpacaFetcher(apiKey, apiSecret, baseURL string) *alpacaFetcher {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
		BaseURL:   baseURL,
	}
	return &alpacaFetcher{client: marketdata.NewClient(opts)}
}

func (f *alpacaFetcher) fetch(symbols []string) (map[string]*Snapshot, error) {
	raw, err := f.client.GetSnapshots(symbols, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, err
	}
	snapshots := make(map[string]*Snapshot, len(raw))
	for symbol, s := range raw {
		if s == nil {
			continue
		}
		snap := &Snapshot{}
		if s.LatestTrade != nil {
			snap.LatestTrade = &Trade{Price: s.LatestTrade.Price}
		}
		if s.PrevDailyBar != nil {
			snap.PrevDailyBar = &Bar{Open: s.PrevDailyBar.Open, Close: s.PrevDailyBar.Close, Volume: s.PrevDailyBar.Volume}
		}
		if s.MinuteBar != nil {
			snap.MinuteBar = &Bar{Open: s.MinuteBar.Open, Close: s.MinuteBar.Close, Volume: s.MinuteBar.Volume}
		}
		snapshots[symbol] = snap
	}
	return snapshots, nil
}
