package todostore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pendingMutations = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "todosync_store_pending_mutations",
		Help: "Optimistic mutations waiting for the server, by kind.",
	}, []string{"kind"})

	reverts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todosync_store_reverts_total",
		Help: "Optimistic mutations rolled back, by kind.",
	}, []string{"kind"})

	reconciliations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todosync_store_reconciliations_total",
		Help: "Server confirmations merged into the store, by kind.",
	}, []string{"kind"})

	fetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "todosync_store_fetch_errors_total",
		Help: "Failed refreshes, by state slice.",
	}, []string{"slice"})
)
