package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Lookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookup_ui",
		Name:      "lookups_total",
		Help:      "Rate lookups by outcome.",
	}, []string{"outcome"})

	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "lookup_ui",
		Name:      "cache_lookups_total",
		Help:      "Rates cache reads by result.",
	}, []string{"result"})

	UpstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "lookup_ui",
		Name:      "upstream_request_duration_seconds",
		Help:      "Latency of rates API lookups.",
		Buckets:   prometheus.DefBuckets,
	})
)

const (
	OutcomeOK      = "ok"
	OutcomeEmpty   = "empty"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)
