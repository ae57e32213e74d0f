package sharing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	bundlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelshare_bundles_total",
		Help: "Bundle assemblies by result.",
	}, []string{"result"})

	objectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelshare_objects_total",
		Help: "Records processed by outcome and anonymization level.",
	}, []string{"outcome", "level"})

	ledgerFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intelshare_ledger_failures_total",
		Help: "Share ledger appends that failed.",
	})
)

func recordObject(included bool, level string) {
	outcome := "excluded"
	if included {
		outcome = "included"
	}
	objectsTotal.WithLabelValues(outcome, level).Inc()
}
