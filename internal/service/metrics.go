package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cartMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_mutations_total",
			Help: "Cart mutations applied, by operation.",
		},
		[]string{"op"},
	)

	cartPersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_cart_persist_failures_total",
			Help: "Cart snapshot writes that failed, by operation.",
		},
		[]string{"op"},
	)

	checkoutsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkouts_total",
			Help: "Checkout submissions, by result.",
		},
		[]string{"result"},
	)

	staleLoadsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_stale_loads_dropped_total",
			Help: "Remote load results discarded because a newer load started or the caller went away.",
		},
		[]string{"view"},
	)
)
