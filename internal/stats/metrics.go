package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	clicksRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spam_clicks_recorded_total",
		Help: "Total number of clicks committed to the store",
	})

	usersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spam_users_created_total",
		Help: "Total number of users created by their first click",
	})

	achievementsGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spam_achievements_granted_total",
			Help: "Total number of achievements granted, by title",
		},
		[]string{"title"},
	)

	operationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "spam_operation_failures_total",
			Help: "Failed or degraded stats operations, by operation and kind",
		},
		[]string{"op", "kind"},
	)

	txRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "spam_record_tx_retries_total",
		Help: "Retries of the click recording transaction after retryable store errors",
	})
)
