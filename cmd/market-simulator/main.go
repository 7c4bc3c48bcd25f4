package main

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/shared/config"
	skafka "github.com/radieske/bet-settlement-ledger/internal/shared/kafka"
	"github.com/radieske/bet-settlement-ledger/internal/shared/logger"
	"github.com/radieske/bet-settlement-ledger/internal/shared/metrics"
	ev "github.com/radieske/bet-settlement-ledger/pkg/contracts/events"
)

// Catálogo fixo de mercados simulados (resultado de partida)
var marketCatalog = []string{
	"MATCH_001:1x2",
	"MATCH_002:1x2",
	"MATCH_003:1x2",
	"MATCH_004:1x2",
}

var selections = []string{"HOME", "DRAW", "AWAY"}

// Métricas Prometheus do simulador
var eventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "simulator_market_events_total",
	Help: "Eventos de mercado publicados por status",
}, []string{"status"})

func main() {
	cfg := config.Load()
	log, err := logger.New("market-simulator", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketEvents)
	defer writer.Close()

	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error { return nil })

	log.Info("market-simulator started", zap.String("topic", cfg.TopicMarketEvents))

	ctx := context.Background()
	generation := int64(0)

	for {
		generation++

		for _, m := range marketCatalog {
			publish(ctx, log, writer, ev.MarketStatusChanged{
				MarketID:   m,
				Status:     "OPEN",
				Generation: generation,
			})
		}

		// janela de apostas
		time.Sleep(20 * time.Second)

		// suspensões aleatórias no meio da janela
		for _, m := range marketCatalog {
			if rand.Intn(3) == 0 {
				publish(ctx, log, writer, ev.MarketStatusChanged{MarketID: m, Status: "SUSPENDED", Generation: generation})
				time.Sleep(2 * time.Second)
				publish(ctx, log, writer, ev.MarketStatusChanged{MarketID: m, Status: "OPEN", Generation: generation})
			}
		}

		time.Sleep(10 * time.Second)

		// resolução: maioria liquida, uma fração anula; reemite o resultado
		// de propósito pra exercitar a idempotência do consumidor
		for _, m := range marketCatalog {
			var e ev.MarketStatusChanged
			if rand.Intn(10) == 0 {
				e = ev.MarketStatusChanged{MarketID: m, Status: "VOIDED", Generation: generation}
			} else {
				e = ev.MarketStatusChanged{
					MarketID:         m,
					Status:           "SETTLED",
					WinningSelection: selections[rand.Intn(len(selections))],
					Generation:       generation,
				}
			}
			publish(ctx, log, writer, e)
			publish(ctx, log, writer, e) // entrega duplicada proposital
		}

		time.Sleep(5 * time.Second)
	}
}

func publish(ctx context.Context, log *zap.Logger, w *skafka.Writer, e ev.MarketStatusChanged) {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	if err := skafka.WriteJSON(ctx, w, e.MarketID, b); err != nil {
		log.Warn("publish market event", zap.Error(err))
		return
	}
	eventsPublished.WithLabelValues(e.Status).Inc()
}
