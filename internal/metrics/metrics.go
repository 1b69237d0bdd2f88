package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BlocksProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapscan",
		Name:      "blocks_processed_total",
		Help:      "Number of block heights processed.",
	})
	HeightsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapscan",
		Name:      "heights_skipped_total",
		Help:      "Number of heights skipped because no block index was found.",
	})
	UndoReadFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapscan",
		Name:      "undo_read_failures_total",
		Help:      "Number of heights reported with zero counts because undo data could not be read.",
	})
	TaprootInputs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapscan",
		Name:      "taproot_inputs_total",
		Help:      "Number of spent taproot (P2TR) inputs seen.",
	})
	NonTaprootInputs = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapscan",
		Name:      "non_taproot_inputs_total",
		Help:      "Number of spent non-taproot inputs seen.",
	})
	MixedTransactions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tapscan",
		Name:      "mixed_transactions_total",
		Help:      "Number of transactions spending both taproot and non-taproot inputs.",
	})
)

// ListenAndServe exposes the default registry on /metrics. Blocks until the
// server fails or the listener is closed.
func ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
