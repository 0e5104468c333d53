package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestedRecordsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "ingested_records_total",
			Help:      "Total number of customer and order ingestion requests by outcome.",
		},
		[]string{"kind", "outcome"}, // outcome: created, existing, queued, fallback, error
	)

	campaignsDispatchedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "campaigns_dispatched_total",
			Help:      "Total number of campaign dispatches by final status.",
		},
		[]string{"status"},
	)

	deliveryAttemptsCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "delivery_attempts_total",
			Help:      "Total number of simulated delivery attempts.",
		},
		[]string{"status"},
	)

	dispatchDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "campaign_dispatch_duration_seconds",
			Help:      "Duration of a campaign dispatch.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	receiptsAcceptedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "receipts_accepted_total",
			Help:      "Total number of delivery receipts accepted into the pending buffer.",
		},
		[]string{"source"}, // http, nats
	)

	receiptsPendingGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "crm",
			Name:      "receipts_pending",
			Help:      "Receipts waiting for the next reconciliation tick.",
		},
	)

	receiptsReconciledCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "receipts_reconciled_total",
			Help:      "Total number of drained receipts by reconciliation result.",
		},
		[]string{"result"}, // matched, unmatched, requeued
	)

	reconcileTickDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "crm",
			Name:      "reconcile_tick_duration_seconds",
			Help:      "Duration of a reconciliation tick.",
			Buckets:   prometheus.DefBuckets,
		},
	)

	natsMessagesReceivedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "nats_messages_received_total",
			Help:      "Total number of NATS messages received.",
		},
		[]string{"subject_pattern", "status"},
	)

	suggestionsServedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "crm",
			Name:      "suggestions_served_total",
			Help:      "Total number of suggestion requests by source.",
		},
		[]string{"source"}, // generator, fallback
	)
)
