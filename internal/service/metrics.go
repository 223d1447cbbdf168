package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the Prometheus collectors of the bot on a private registry
type Metrics struct {
	Registry           *prometheus.Registry
	Joins              prometheus.Counter
	SubscriptionChecks *prometheus.CounterVec
	Finalizations      *prometheus.CounterVec
	Deliveries         *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors
func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Joins: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "giveawaybot",
			Name:      "participants_joined_total",
			Help:      "Participants registered for the giveaway.",
		}),
		SubscriptionChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giveawaybot",
			Name:      "subscription_checks_total",
			Help:      "Channel membership checks by result.",
		}, []string{"result"}),
		Finalizations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giveawaybot",
			Name:      "finalizations_total",
			Help:      "Giveaway finalizations by trigger.",
		}, []string{"trigger"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "giveawaybot",
			Name:      "deliveries_total",
			Help:      "Outbound fan-out deliveries by kind and status.",
		}, []string{"kind", "status"}),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.Joins,
		m.SubscriptionChecks,
		m.Finalizations,
		m.Deliveries,
	)
	return m
}
