package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/radieske/live-odds-sync/internal/engine"
	"github.com/radieske/live-odds-sync/internal/fetch"
	"github.com/radieske/live-odds-sync/internal/oddsstore"
	"github.com/radieske/live-odds-sync/internal/repository"
	"github.com/radieske/live-odds-sync/internal/shared/cache"
	"github.com/radieske/live-odds-sync/internal/shared/config"
	"github.com/radieske/live-odds-sync/internal/shared/logger"
	"github.com/radieske/live-odds-sync/internal/shared/metrics"
	"github.com/radieske/live-odds-sync/internal/stream"
)

func main() {
	// carrega config
	cfg := config.Load()

	// inicia logger
	log, err := logger.New(cfg.ServiceName, cfg.Env)
	if err != nil {
		panic(fmt.Errorf("logger init: %w", err))
	}
	defer log.Sync()

	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	metrics.MustRegisterSync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// snapshot quente opcional em Redis
	var snaps *repository.Snapshots
	var health metrics.HealthFunc
	if cfg.RedisAddr != "" {
		redisClient, err := cache.ConnectRedis(cfg.RedisAddr)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
		log.Info("redis connected")

		snaps = repository.NewSnapshots(redisClient, cfg.ExpirationInterval, log)
		health = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
	}

	// repository com a política de frescor em camadas
	client := fetch.NewHTTPClient(cfg.BackendBaseURL)
	repo := repository.New(client, log, repository.Options{
		ExpirationInterval:       cfg.ExpirationInterval,
		QuickRefreshInterval:     cfg.QuickRefreshInterval,
		MaxCacheAge:              cfg.MaxCacheAge,
		BackgroundUpdateInterval: cfg.BackgroundUpdateInterval,
	}, snaps)
	repo.OnHit = func() { metrics.CacheRequests.Inc(); metrics.CacheHits.Inc() }
	repo.OnMiss = func() { metrics.CacheRequests.Inc(); metrics.CacheMisses.Inc() }
	repo.OnBackgroundRefresh = metrics.BackgroundRefreshes.Inc

	repo.Warmup()
	go repo.StartBackgroundUpdates(ctx)

	// fonte do stream conforme configuração
	var connector stream.Connector
	switch cfg.StreamSource {
	case "kafka":
		connector = &stream.KafkaConnector{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.TopicOddsUpdates,
			GroupID: "sync-service",
			Log:     log,
		}
	case "sim":
		connector = &stream.SimConnector{
			TickInterval: cfg.SimTickInterval,
			VariationPct: cfg.SimVariationPct,
			MinOdds:      cfg.SimOddsMin,
			MaxOdds:      cfg.SimOddsMax,
		}
	default:
		connector = &stream.WSConnector{URL: cfg.FeedWSURL, Log: log}
	}
	log.Info("stream source selected", zap.String("source", cfg.StreamSource))

	mgr := stream.NewManager(connector, log)
	mgr.MaxReconnectAttempts = cfg.MaxReconnectAttempts
	mgr.OnUpdate = metrics.UpdatesReceived.Inc
	mgr.OnStateChange = func(s stream.ConnectionState) {
		metrics.ConnState.Set(float64(s.Kind))
	}

	store := oddsstore.New()
	eng := engine.New(repo, store, mgr, log)
	defer eng.Close()

	// carga inicial foreground; em falha o serviço segue com o stream
	// e a UI mostra o erro até um retry
	if err := eng.LoadInitialData(ctx); err != nil {
		log.Warn("initial load failed, will retry on demand", zap.Error(err))
	}

	mgr.Start(ctx)
	defer mgr.Stop()

	// sobe servidor de métricas e health
	metrics.StartMetricsServer(cfg.MetricsPort, health)
	log.Info("metrics/health server started", zap.String("port", cfg.MetricsPort))

	// consumidor único dos canais do stream; bloqueia até o shutdown
	eng.Run(ctx)
	log.Info("shutting down")
}
