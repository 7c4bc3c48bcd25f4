package main

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/hierarchy"
	"github.com/radieske/bet-settlement-ledger/internal/market"
	"github.com/radieske/bet-settlement-ledger/internal/settlement"
	"github.com/radieske/bet-settlement-ledger/internal/shared/cache"
	"github.com/radieske/bet-settlement-ledger/internal/shared/config"
	"github.com/radieske/bet-settlement-ledger/internal/shared/db"
	skafka "github.com/radieske/bet-settlement-ledger/internal/shared/kafka"
	"github.com/radieske/bet-settlement-ledger/internal/shared/logger"
	"github.com/radieske/bet-settlement-ledger/internal/shared/metrics"
	ev "github.com/radieske/bet-settlement-ledger/pkg/contracts/events"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("settlement-worker", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres: ledger, apostas, reservas, marcadores de liquidação
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg connect", zap.Error(err))
	}
	defer pg.Close()

	// Redis: write-through do status de mercado (frescor da suspensão)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka: consome market_events, publica bet_settled, DLQ pra falhas
	reader := skafka.NewReader(cfg.KafkaBrokers, cfg.TopicMarketEvents, "settlement-worker")
	defer reader.Close()

	settledWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetSettled)
	defer settledWriter.Close()

	dlqWriter := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicMarketEventsDLQ)
	defer dlqWriter.Close()

	// deps
	betsRepo := bets.NewPostgres(pg)
	markets := market.NewStore(pg, rdb)
	resolver := hierarchy.NewResolver(hierarchy.NewPostgres(pg), cfg.MaxHierarchyDepth)
	engine := settlement.NewEngine(log, betsRepo, resolver,
		markets, settlement.NewPostgresWriter(pg), settlement.NewKafkaPublisher(settledWriter))

	// métricas e healthcheck
	metrics.StartMetricsServer(cfg.MetricsPort, func(ctx context.Context) error {
		if err := pg.PingContext(ctx); err != nil {
			return err
		}
		return rdb.Ping(ctx).Err()
	})

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicMarketEvents),
		zap.String("publish", cfg.TopicBetSettled),
	)

	ctx := context.Background()

	// Loop principal: consome eventos de mercado e aplica no núcleo
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			log.Warn("kafka read", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		var e ev.MarketStatusChanged
		if jerr := json.Unmarshal(msg.Value, &e); jerr != nil {
			log.Error("unmarshal market event", zap.Error(jerr))
			_ = skafka.WriteJSON(ctx, dlqWriter, string(msg.Key), msg.Value)
			continue
		}

		if err := processEvent(ctx, log, markets, engine, &e); err != nil {
			log.Error("process market event",
				zap.String("market_id", e.MarketID), zap.String("status", e.Status), zap.Error(err))
			// hierarquia quebrada e afins exigem operador; o evento vai pra
			// DLQ e o marcador retido garante retomada depois do conserto
			_ = skafka.WriteJSON(ctx, dlqWriter, e.MarketID, msg.Value)
			time.Sleep(500 * time.Millisecond)
		}
	}
}

// processEvent roteia um evento de status de mercado:
// OPEN/SUSPENDED mexem só no estado do mercado; SETTLED/VOIDED disparam a
// cascata de liquidação (idempotente por marcador).
func processEvent(ctx context.Context, log *zap.Logger, markets *market.Store, engine *settlement.Engine, e *ev.MarketStatusChanged) error {
	switch market.Status(e.Status) {
	case market.StatusOpen:
		if err := markets.Upsert(ctx, e.MarketID, market.StatusOpen); err != nil {
			return err
		}
		err := markets.SetStatus(ctx, e.MarketID, market.StatusOpen, "")
		if errors.Is(err, market.ErrInvalidTransition) {
			// reemissão depois de terminal: ignora
			log.Warn("open after terminal ignored", zap.String("market_id", e.MarketID))
			return nil
		}
		return err

	case market.StatusSuspended:
		err := markets.SetStatus(ctx, e.MarketID, market.StatusSuspended, "")
		if errors.Is(err, market.ErrNotFound) || errors.Is(err, market.ErrInvalidTransition) {
			log.Warn("suspension ignored", zap.String("market_id", e.MarketID), zap.Error(err))
			return nil
		}
		return err

	case market.StatusSettled:
		return engine.Settle(ctx, e.MarketID, e.WinningSelection, e.Generation)

	case market.StatusVoided:
		return engine.Void(ctx, e.MarketID, e.Generation)
	}

	log.Warn("unknown market status", zap.String("status", e.Status))
	return nil
}
