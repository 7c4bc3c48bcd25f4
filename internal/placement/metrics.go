package placement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas Prometheus do caminho de colocação
var (
	placementsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_placements_accepted_total",
		Help: "Apostas aceitas",
	})
	placementsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_placements_rejected_total",
		Help: "Apostas recusadas por motivo",
	}, []string{"reason"})
)
