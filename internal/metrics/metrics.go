package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "scan_ticks_total", Help: "Count of scan loop ticks"},
	)
	SnapshotsFetched = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "snapshots_fetched_total", Help: "Symbol snapshots fetched"},
	)
	SnapshotFailures = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "snapshot_failures_total", Help: "Snapshot batches abandoned after retries"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side"},
	)
	OrderRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "order_rejections_total", Help: "Order submissions rejected or failed"},
		[]string{"symbol"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "open_positions", Help: "Open positions at last tick"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, SnapshotsFetched, SnapshotFailures, OrdersTotal, OrderRejections, OpenPositions)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
