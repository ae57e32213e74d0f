package trust

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelshare_trust_resolutions_total",
		Help: "Trust resolutions by basis and resulting anonymization level.",
	}, []string{"basis", "level"})

	cacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intelshare_trust_cache_lookups_total",
		Help: "Process-wide trust cache lookups by result.",
	}, []string{"result"})
)
