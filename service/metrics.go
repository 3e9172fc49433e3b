package service

import (
	"strconv"

	"github.com/layer-3/walletauth/core"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts challenge and verification outcomes
type Metrics struct {
	challengesIssued prometheus.Counter
	verifications    *prometheus.CounterVec
}

// NewMetrics registers the service counters on reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		challengesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "walletauth",
			Name:      "challenges_issued_total",
			Help:      "Total number of issued challenges",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletauth",
			Name:      "verifications_total",
			Help:      "Total number of verification attempts by chain and result",
		}, []string{"chain", "result"}),
	}
	reg.MustRegister(m.challengesIssued, m.verifications)
	return m
}

func (m *Metrics) challengeIssued() {
	if m == nil {
		return
	}
	m.challengesIssued.Inc()
}

func (m *Metrics) verified(chain core.Chain, result bool) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(chain.String(), strconv.FormatBool(result)).Inc()
}
