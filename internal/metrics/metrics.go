// Package metrics exposes the counters the operational alerting path watches.
// Ledger gaps and anomalous webhooks must be independently alertable, never
// only a log line.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerPostFailures counts earnings postings that failed after the
	// payment was already completed at the provider (manual reconciliation
	// required).
	LedgerPostFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkly_ledger_post_failures_total",
		Help: "Earnings postings that failed after payment completion.",
	})

	// AnomalousWebhooks counts provider callbacks that referenced a
	// reservation no longer in a payable state (e.g. success after expiry).
	AnomalousWebhooks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkly_anomalous_webhooks_total",
		Help: "Provider callbacks that could not be applied to any reservation.",
	})

	// NegativeBalances counts refund reversals that drove an owner balance
	// below zero.
	NegativeBalances = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkly_negative_balances_total",
		Help: "Refund reversals that left an owner balance negative.",
	})

	// SweepExpired counts reservations expired by the cleanup scheduler.
	SweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkly_sweep_expired_reservations_total",
		Help: "Reservations expired by the cleanup sweep.",
	})

	// SweepFailures counts failed cleanup runs (retried on the next tick).
	SweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "parkly_sweep_failures_total",
		Help: "Cleanup sweep runs that returned an error.",
	})
)
