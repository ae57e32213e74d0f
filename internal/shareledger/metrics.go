package shareledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	chainValid = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "intelshare_ledger_chain_valid",
		Help: "1 if the last share ledger verification succeeded, 0 otherwise.",
	})

	verifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelshare_ledger_verifications_total",
		Help: "Share ledger verifications by result.",
	}, []string{"result"})
)
