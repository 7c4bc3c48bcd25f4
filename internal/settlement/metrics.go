package settlement

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Métricas Prometheus do caminho de liquidação
var (
	settlementsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlements_applied_total",
		Help: "Mercados liquidados com marcador gravado",
	})
	duplicateSettlements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_settlements_duplicate_total",
		Help: "Reentregas de resultado ignoradas (no-op)",
	})
	betsSettled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_bets_settled_total",
		Help: "Apostas liquidadas por status final",
	}, []string{"status"})
	brokenHierarchy = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ledger_broken_hierarchy_total",
		Help: "Apostas com cadeia de agentes quebrada (fatal, exige operador)",
	})
)
