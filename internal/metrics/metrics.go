// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// QuotaDecisions counts quota evaluations by action and result
	// (admitted, denied, unlimited).
	QuotaDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfinder",
		Name:      "quota_decisions_total",
		Help:      "Quota evaluations by action kind and result.",
	}, []string{"action", "result"})

	// GateDenials counts permission gate refusals by reason.
	GateDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfinder",
		Name:      "gate_denials_total",
		Help:      "Permission gate denials by permission and reason.",
	}, []string{"permission", "reason"})

	// RoutingBatches counts distance matrix batches by outcome.
	RoutingBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfinder",
		Name:      "routing_batches_total",
		Help:      "Distance matrix batch calls by outcome.",
	}, []string{"outcome"})

	// DiscoveryAdmissions counts postings admitted by radius searches,
	// labelled by where the distance came from (routed, approximate).
	DiscoveryAdmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfinder",
		Name:      "discovery_admissions_total",
		Help:      "Postings admitted by radius searches by distance source.",
	}, []string{"source"})

	// EventsPublished counts broker publications by event type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchfinder",
		Name:      "events_published_total",
		Help:      "Lifecycle events published to the broker.",
	}, []string{"type", "result"})
)
