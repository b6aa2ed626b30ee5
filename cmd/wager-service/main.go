package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/combat-bet-platform/internal/shared/cache"
	"github.com/radieske/combat-bet-platform/internal/shared/config"
	"github.com/radieske/combat-bet-platform/internal/shared/db"
	"github.com/radieske/combat-bet-platform/internal/shared/kafka"
	"github.com/radieske/combat-bet-platform/internal/shared/logger"
	"github.com/radieske/combat-bet-platform/internal/shared/metrics"
	"github.com/radieske/combat-bet-platform/internal/wager-service/auth"
	wcache "github.com/radieske/combat-bet-platform/internal/wager-service/cache"
	"github.com/radieske/combat-bet-platform/internal/wager-service/feed"
	httpapi "github.com/radieske/combat-bet-platform/internal/wager-service/http"
	"github.com/radieske/combat-bet-platform/internal/wager-service/notify"
	"github.com/radieske/combat-bet-platform/internal/wager/domain"
	"github.com/radieske/combat-bet-platform/internal/wager/escrow"
	"github.com/radieske/combat-bet-platform/internal/wager/producer"
	"github.com/radieske/combat-bet-platform/internal/wager/repo"
	"github.com/radieske/combat-bet-platform/internal/wager/settlement"
)

func main() {
	cfg, err := config.LoadFor("wager-service")
	if err != nil {
		panic(err)
	}
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Banco: Postgres em produção, SQLite local
	sqlDB, err := db.Connect(ctx, cfg.DBDriver, cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		log.Fatal("db connect", zap.String("driver", cfg.DBDriver), zap.Error(err))
	}
	defer sqlDB.Close()

	store := repo.New(sqlDB)
	if err := store.Migrate(ctx); err != nil {
		log.Fatal("db migrate", zap.Error(err))
	}

	// Redis (opcional): cache da listagem e fan-out do feed entre instâncias
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		if rdb, err = cache.ConnectRedis(ctx, cfg.RedisAddr); err != nil {
			log.Fatal("redis connect", zap.Error(err))
		}
		defer rdb.Close()
	}

	hub := feed.NewHub(func(*http.Request) bool { return true }, log)
	var (
		combatCache wcache.CombatList = wcache.Noop{}
		feedPub     feed.Publisher    = feed.Local{Hub: hub}
	)
	if rdb != nil {
		combatCache = wcache.NewRedis(rdb, cfg.CombatListTTL)
		feedPub = feed.NewRedisBroadcaster(rdb, cfg.RedisPubSubChannel)
		feed.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log)
	}

	// Kafka (opcional): eventos de domínio
	var events producer.Publisher = producer.Noop{}
	if cfg.KafkaEnabled() {
		writer := kafka.NewWriter(cfg.KafkaBrokers)
		defer writer.Close()
		events = producer.NewKafkaPublisher(writer, producer.Topics{
			BetPlaced:     cfg.TopicBetPlaced,
			CombatSettled: cfg.TopicCombatSettled,
			PayoutFailed:  cfg.TopicPayoutFailed,
		})
	}

	m := metrics.NewWager(prometheus.DefaultRegisterer)
	notifier := notify.New(events, feedPub, log)

	// Escrow: métricas + eventos via callbacks
	escrowMgr := escrow.NewManager(store, log)
	escrowMgr.OnPlaced = func(ctx context.Context, b domain.Bet) {
		m.BetsPlaced.Inc()
		notifier.BetPlaced(ctx, b)
	}
	escrowMgr.OnRejected = func(reason string) { m.BetRejections.WithLabelValues(reason).Inc() }
	escrowMgr.OnRefund = func(result string) { m.Refunds.WithLabelValues(result).Inc() }

	payout := settlement.NewPayout(store, log)
	payout.OnPaid = func(_ domain.Bet, amount int64) {
		m.Payouts.WithLabelValues("paid").Inc()
		m.PayoutCredits.Add(float64(amount))
	}
	payout.OnFailed = func(ctx context.Context, b domain.Bet, amount int64, err error) {
		m.Payouts.WithLabelValues("failed").Inc()
		notifier.PayoutFailed(ctx, b, amount, err)
	}

	engine := settlement.NewEngine(store, payout, log)
	engine.OnOpened = notifier.CombatOpened
	engine.OnSettled = notifier.CombatSettled
	engine.OnResult = func(result string) { m.Settlements.WithLabelValues(result).Inc() }

	api := &httpapi.API{
		Log:          log,
		Auth:         auth.NewService(store, auth.NewTokens(cfg.JWTSecret, cfg.SessionTTL), cfg.StartingCredits, log),
		Escrow:       escrowMgr,
		Engine:       engine,
		Payout:       payout,
		Store:        store,
		Cache:        combatCache,
		Hub:          hub,
		SecureCookie: cfg.Env != "local",
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(cfg.MetricsPort, healthCheck(sqlDB, rdb), func(err error) {
		log.Error("metrics server failed", zap.Error(err))
	})
	log.Info("metrics/health", zap.String("addr", metricsSrv.Addr))

	// HTTP público
	apiSrv := httpapi.NewServer(fmt.Sprintf(":%s", cfg.HTTPPort), api.Router())
	go func() {
		log.Info("wager-service listening", zap.String("addr", apiSrv.Addr), zap.String("db", cfg.DBDriver))
		if err := apiSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("api server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := apiSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("api shutdown", zap.Error(err))
	}
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("wager-service stopped")
}

// healthCheck valida banco e, se configurado, Redis
func healthCheck(sqlDB *sql.DB, rdb *redis.Client) metrics.HealthFunc {
	return func(ctx context.Context) error {
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("db: %w", err)
		}
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
		}
		return nil
	}
}
