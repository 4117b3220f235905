package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var lockContention = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "cleaning_service",
		Subsystem: "claims",
		Name:      "lock_contention_total",
		Help:      "Claim attempts rejected because the order lock was held",
	},
)
