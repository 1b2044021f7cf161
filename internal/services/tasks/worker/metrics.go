package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	dispatchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasks_worker_dispatch_total",
		Help: "Fetch events by routing outcome",
	}, []string{"outcome"})

	strategyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasks_worker_cache_strategy_total",
		Help: "Cache strategy lookups by strategy and result",
	}, []string{"strategy", "result"})

	backgroundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tasks_worker_background_total",
		Help: "Completed background work by result",
	}, []string{"result"})

	lifecycleState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tasks_worker_lifecycle_state",
		Help: "1 for the current lifecycle state of the worker",
	}, []string{"state"})
)
