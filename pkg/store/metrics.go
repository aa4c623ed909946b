package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// StoreOperations tracks store operations by backend and operation
	StoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_store_operations_total",
			Help: "Total number of run/report store operations",
		},
		[]string{"backend", "operation"}, // "redis"|"sqlite", "save_run", "get_run", ...
	)

	// StoreErrors tracks failed store operations
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_store_errors_total",
			Help: "Total number of failed run/report store operations",
		},
		[]string{"backend", "operation"},
	)

	// StoreMisses tracks lookups of unknown runs or reports
	StoreMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inspector_store_misses_total",
			Help: "Total number of lookups for runs or reports that do not exist",
		},
		[]string{"backend"},
	)
)
