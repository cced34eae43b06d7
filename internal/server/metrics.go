package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	racesRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typerush_races_recorded_total",
		Help: "Total number of races stored through the create endpoint",
	})

	racesImported = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typerush_races_imported_total",
		Help: "Total number of races stored through batch imports",
	})

	racesDeduplicated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typerush_races_deduplicated_total",
		Help: "Total number of submitted races skipped as already stored",
	})

	accountsRegistered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "typerush_accounts_registered_total",
		Help: "Total number of registered accounts",
	})

	authFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "typerush_auth_failures_total",
		Help: "Total number of rejected logins and tokens",
	}, []string{"reason"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "typerush_http_request_duration_seconds",
		Help:    "Duration of HTTP requests by route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)
