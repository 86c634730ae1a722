package opentsdb

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricQueriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsqcore",
		Name:      "queries_total",
		Help:      "Total number of queries run.",
	})
	metricRowsScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsqcore",
		Name:      "rows_scanned_total",
		Help:      "Total number of rows returned by the store scanner.",
	})
	metricSpansDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsqcore",
		Name:      "spans_dropped_total",
		Help:      "Total number of Spans dropped during group assembly because a group-by tag was absent.",
	})
	metricScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tsqcore",
		Name:      "scan_duration_seconds",
		Help:      "Time spent scanning and populating Spans for a query.",
		Buckets:   prometheus.DefBuckets,
	})
)
