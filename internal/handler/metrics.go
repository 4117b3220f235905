package handler

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	claimResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "cleaning_service",
			Subsystem: "claims",
			Name:      "results_total",
			Help:      "Claim attempts by outcome (accepted, conflict, invalid_code, not_found, invalid_input, error)",
		},
		[]string{"result"},
	)
)

var (
	submissionsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cleaning_service",
			Subsystem: "kafka_intake",
			Name:      "submissions_processed_total",
			Help:      "Order submissions consumed and stored",
		},
	)

	submissionsDuplicate = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cleaning_service",
			Subsystem: "kafka_intake",
			Name:      "submissions_duplicate_total",
			Help:      "Order submissions rejected by the idempotency guard",
		},
	)

	submissionsDLQ = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cleaning_service",
			Subsystem: "kafka_intake",
			Name:      "submissions_dlq_total",
			Help:      "Order submissions written to the DLQ",
		},
	)

	commitErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "cleaning_service",
			Subsystem: "kafka_intake",
			Name:      "commit_errors_total",
			Help:      "Kafka commit errors",
		},
	)
)
