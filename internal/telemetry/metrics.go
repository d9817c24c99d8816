package telemetry

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Fetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksnap_fetches_total",
		Help: "Snapshot fetches started.",
	})
	FetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksnap_fetch_errors_total",
		Help: "Snapshot fetches that ended with a terminal error.",
	})
	RecordsConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksnap_records_consumed_total",
		Help: "Records read from bounded partition streams.",
	})
	BytesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ksnap_bytes_emitted_total",
		Help: "Decoded bytes emitted on merged snapshot streams.",
	})
	PartitionsInflight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ksnap_partitions_inflight",
		Help: "Partition tasks currently consuming.",
	})
)

func Expose(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		_ = http.ListenAndServe(fmt.Sprintf(":%d", port), nil)
	}()
}
