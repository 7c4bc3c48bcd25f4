package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/radieske/bet-settlement-ledger/internal/bets"
	"github.com/radieske/bet-settlement-ledger/internal/exposure"
	"github.com/radieske/bet-settlement-ledger/internal/ledger"
	lhttp "github.com/radieske/bet-settlement-ledger/internal/ledger-api/http"
	kpub "github.com/radieske/bet-settlement-ledger/internal/ledger-api/producer"
	"github.com/radieske/bet-settlement-ledger/internal/market"
	"github.com/radieske/bet-settlement-ledger/internal/placement"
	"github.com/radieske/bet-settlement-ledger/internal/shared/cache"
	"github.com/radieske/bet-settlement-ledger/internal/shared/config"
	"github.com/radieske/bet-settlement-ledger/internal/shared/db"
	skafka "github.com/radieske/bet-settlement-ledger/internal/shared/kafka"
	"github.com/radieske/bet-settlement-ledger/internal/shared/logger"
)

func main() {
	cfg := config.Load()
	log, err := logger.New("ledger-service", cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	if cfg.MigrationsDir != "" {
		if err := db.Migrate(context.Background(), log, pg, cfg.MigrationsDir); err != nil {
			log.Fatal("migrations", zap.Error(err))
		}
	}

	// Redis (cache de status de mercado)
	rdb, err := cache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}

	// Kafka writer (topic bet_placed)
	writer := skafka.NewWriter(cfg.KafkaBrokers, cfg.TopicBetPlaced)
	defer writer.Close()

	// deps
	ledgerStore := ledger.NewPostgres(pg)
	tracker := exposure.NewPostgres(pg)
	betsRepo := bets.NewPostgres(pg)
	markets := market.NewStore(pg, rdb)
	publ := kpub.NewKafkaPublisher(writer)

	placer := placement.NewService(log, markets, tracker, ledgerStore, placement.NewPostgresWriter(pg), publ)

	// HTTP público
	api := lhttp.NewServer(log, placer, ledgerStore, tracker, betsRepo)
	apiSrv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler: api.Router(),
	}

	// metrics/health
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := pg.PingContext(r.Context()); err != nil {
			http.Error(w, "pg", http.StatusServiceUnavailable)
			return
		}
		if err := rdb.Ping(r.Context()).Err(); err != nil {
			http.Error(w, "redis", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	go func() {
		addr := fmt.Sprintf(":%s", cfg.MetricsPort)
		log.Info("metrics/health", zap.String("addr", addr))
		_ = http.ListenAndServe(addr, metricsMux)
	}()

	log.Info("ledger-service listening", zap.String("addr", fmt.Sprintf(":%s", cfg.HTTPPort)))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
}
