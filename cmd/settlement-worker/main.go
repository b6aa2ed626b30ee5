package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/settlement-worker/consumer"
	"github.com/radieske/combat-bet-platform/internal/shared/config"
	"github.com/radieske/combat-bet-platform/internal/shared/db"
	"github.com/radieske/combat-bet-platform/internal/shared/kafka"
	"github.com/radieske/combat-bet-platform/internal/shared/logger"
	"github.com/radieske/combat-bet-platform/internal/shared/metrics"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/producer"
	"github.com/radieske/combat-bet-platform/internal/wager/repo"
	"github.com/radieske/combat-bet-platform/internal/wager/settlement"
	"github.com/radieske/combat-bet-platform/pkg/contracts/events"
)

const consumerGroup = "payout-replay"

func main() {
	cfg, err := config.LoadFor("settlement-worker")
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if !cfg.KafkaEnabled() {
		log.Fatal("settlement-worker requires KAFKA_BROKERS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sqlDB, err := db.Connect(ctx, cfg.DBDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer sqlDB.Close()

	store := repo.New(sqlDB)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Kafka: consumer group com commit explícito + writer para DLQ e payout_failed
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicCombatSettled, consumerGroup)
	defer reader.Close()
	writer := kafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()

	publisher := producer.NewKafkaPublisher(writer, producer.Topics{
		BetPlaced:     cfg.TopicBetPlaced,
		CombatSettled: cfg.TopicCombatSettled,
		PayoutFailed:  cfg.TopicPayoutFailed,
	})

	m := metrics.NewWorker(prometheus.DefaultRegisterer)

	payout := settlement.NewPayout(store, log)
	payout.OnPaid = func(_ domain.Bet, amount int64) { m.Credited.Add(float64(amount)) }
	payout.OnFailed = func(ctx context.Context, b domain.Bet, amount int64, err error) {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if perr := publisher.PublishPayoutFailed(pctx, payoutFailed(b, amount, err)); perr != nil {
			log.Warn("publish payout_failed failed", zap.String("betId", b.ID), zap.Error(perr))
		}
	}

	proc := &consumer.Processor{
		Log:          log,
		Reader:       reader,
		Payout:       payout,
		DLQ:          writer,
		DLQTopic:     cfg.TopicCombatSettledDLQ,
		MaxAttempts:  5,
		Backoff:      500 * time.Millisecond,
		OnConsumed:   func() { m.Consumed.Inc() },
		OnReplayed:   func(settlement.Report) { m.Replayed.Inc() },
		OnDeadLetter: func() { m.DeadLetters.Inc() },
		OnError:      func(stage string) { m.Errors.WithLabelValues(stage).Inc() },
	}

	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, store.Ping, func(err error) {
		log.Error("metrics server failed", zap.Error(err))
	})
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	log.Info("settlement-worker started",
		zap.String("consume", cfg.TopicCombatSettled),
		zap.String("dlq", cfg.TopicCombatSettledDLQ))
	runErr := proc.Run(ctx)
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Error("processor stopped with error", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")

	// saída não-zero para o orquestrador reiniciar e reentregar a mensagem pendente
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		cancel()
		os.Exit(1)
	}
}

func payoutFailed(b domain.Bet, amount int64, err error) events.PayoutFailed {
	return events.PayoutFailed{
		CombatID: b.CombatID,
		BetID:    b.ID,
		UserID:   b.UserID,
		Amount:   amount,
		Reason:   err.Error(),
	}
}
