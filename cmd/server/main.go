package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pkazakov/tradefloor/internal/adapter/cache"
	"github.com/pkazakov/tradefloor/internal/adapter/pg"
	"github.com/pkazakov/tradefloor/internal/api/http"
	"github.com/pkazakov/tradefloor/internal/config"
	"github.com/pkazakov/tradefloor/internal/core"
	"github.com/pkazakov/tradefloor/internal/metrics"
	"github.com/pkazakov/tradefloor/internal/port"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var repo port.SaleRepository
	if cfg.DatabaseURL != "" {
		pgRepo, err := pg.NewSaleRepo(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to connect to Postgres", zap.Error(err))
		}
		defer pgRepo.Close()
		repo = pgRepo
	} else {
		logger.Warn("DB_URL not set, sales will not be persisted")
	}

	var (
		mdCache  port.MarketDataCache
		listener core.Listener
	)
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err := redisCache.Ping(ctx); err != nil {
			logger.Fatal("failed to connect to Redis", zap.Error(err))
		}
		mdCache = redisCache
		listener = core.NewMarketDataPublisher(mdCache, logger)
	} else {
		logger.Warn("REDIS_ADDR not set, market data endpoints will be empty")
	}

	router := core.NewRouter(core.RouterConfig{
		ProductIDs:      cfg.ProductIDs,
		Partitions:      cfg.Partitions,
		SittingDelay:    cfg.SittingDelay,
		OrderTimeout:    cfg.OrderTimeout,
		VolumeRetention: cfg.VolumeRetention,
	}, repo, listener, logger)
	router.Start(ctx)

	go logSaleCounter(ctx, router, cfg.CounterLogInterval, logger)

	server := http.NewServer(router, mdCache, cfg.RateLimit, logger)
	logger.Info("starting HTTP server", zap.String("addr", cfg.HTTPAddr))
	if err := server.Run(cfg.HTTPAddr); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}
}

// logSaleCounter periodically reports the running count of completed
// sales orders.
func logSaleCounter(ctx context.Context, router *core.Router, interval time.Duration, logger *zap.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("sales completed so far", zap.Int64("numSales", router.SalesCompleted()))
		}
	}
}
