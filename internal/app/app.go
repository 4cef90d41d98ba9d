package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/velodash/velodash/internal/backend"
	"github.com/velodash/velodash/internal/bikeservice"
	"github.com/velodash/velodash/internal/config"
	"github.com/velodash/velodash/internal/gateway"
	"github.com/velodash/velodash/internal/geocode"
	"github.com/velodash/velodash/internal/httpserver"
	"github.com/velodash/velodash/internal/logger"
	"github.com/velodash/velodash/internal/metrics"
	"github.com/velodash/velodash/internal/orchestrator"
	"github.com/velodash/velodash/internal/redis"
	"github.com/velodash/velodash/internal/scheduler"
	"github.com/velodash/velodash/internal/sources/backends"
	"github.com/velodash/velodash/internal/stations"
	redisstore "github.com/velodash/velodash/internal/store/redis"
	"github.com/velodash/velodash/internal/version"
	"github.com/velodash/velodash/internal/weather"
	"github.com/velodash/velodash/internal/weatherservice"
)

// App wires the three HTTP services that make up the dashboard: the gateway
// and the two backends it fans out to. They run in one process but talk to
// each other over plain HTTP, so any of them can be split out later.
type App struct {
	cfg         *config.Config
	logger      logger.Logger
	servers     []*httpserver.Server
	refresher   *scheduler.StationRefresher
	redisClient *goredis.Client
}

func New() *App {
	cfg := config.Load()

	loggerClient := logger.New(cfg.LogLevel, cfg.PrettyLog)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	m := metrics.New(registry)

	// Redis is optional: when configured it persists the station snapshot so
	// a restart can serve bike data before the first feed fetch.
	var redisClient *goredis.Client
	var store *redisstore.Store
	if cfg.RedisAddr != "" {
		client, err := redis.New(redis.ConnectOptions{
			Addr:           cfg.RedisAddr,
			User:           cfg.RedisUser,
			Password:       cfg.RedisPassword,
			DB:             cfg.RedisDB,
			DialTimeout:    cfg.RedisDialTimeout,
			ReadTimeout:    cfg.RedisReadTimeout,
			WriteTimeout:   cfg.RedisWriteTimeout,
			ConnectTimeout: cfg.RedisConnectTimeout,
			RetryInterval:  cfg.RedisRetryInterval,
		}, loggerClient)
		if err != nil {
			loggerClient.Errorf("Failed to connect to Redis: %v", err)
			os.Exit(1)
		}
		redisClient = client
		store = redisstore.NewStore(client)
	}

	geocoder := geocode.New(geocode.Options{
		BaseURL:   cfg.GeocodeURL,
		Threshold: cfg.GeocodeThreshold,
		Timeout:   cfg.GeocodeTimeout,
	}, loggerClient.Named("geocode"), m)

	var snapshotStore stations.SnapshotStore
	if store != nil {
		snapshotStore = store
	}
	cache := stations.NewCache(stations.Options{
		InfoURL:   cfg.StationInfoURL,
		StatusURL: cfg.StationStatusURL,
		Timeout:   cfg.StationFetchTimeout,
		Store:     snapshotStore,
	}, loggerClient.Named("stations"), m)

	if store != nil {
		warmStart(store, cache, loggerClient)
	}

	resolver := stations.NewResolver(cache)

	weatherClient := weather.New(weather.Options{
		BaseURL:  cfg.WeatherURL,
		Timezone: cfg.WeatherTimezone,
		Timeout:  cfg.WeatherTimeout,
	}, geocoder, loggerClient.Named("weather"))

	targets, err := loadTargets(cfg)
	if err != nil {
		loggerClient.Errorf("Failed to load backend targets: %v", err)
		os.Exit(1)
	}

	orch := orchestrator.New(
		backend.NewClient(loggerClient.Named("backend"), m),
		targets,
		loggerClient.Named("orchestrator"),
	)

	refreshTrigger := make(chan struct{}, 1)
	refresher := scheduler.NewStationRefresher(
		cache,
		loggerClient.Named("refresher"),
		cfg.StationRefreshInterval,
		refreshTrigger,
	)

	gatewayRouter := gateway.Router(gateway.Deps{
		Logger:         loggerClient.Named("gateway"),
		Orch:           orch,
		Version:        versionString(),
		DefaultAddress: cfg.DefaultAddress,
		Metrics:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	weatherRouter := weatherservice.Router(weatherservice.Deps{
		Logger:         loggerClient.Named("weather"),
		Weather:        weatherClient,
		Version:        versionString(),
		DefaultAddress: cfg.DefaultAddress,
	})

	bikesRouter := bikeservice.Router(bikeservice.Deps{
		Logger:         loggerClient.Named("bikes"),
		Geocoder:       geocoder,
		Resolver:       resolver,
		RefreshTrigger: refreshTrigger,
		Version:        versionString(),
		DefaultAddress: cfg.DefaultAddress,
		NearestCount:   cfg.NearestStations,
	})

	servers := []*httpserver.Server{
		httpserver.New("gateway", cfg.GatewayAddr, gatewayRouter, loggerClient),
		httpserver.New("weather service", cfg.WeatherAddr, weatherRouter, loggerClient),
		httpserver.New("bike service", cfg.BikesAddr, bikesRouter, loggerClient),
	}

	return &App{
		cfg:         cfg,
		logger:      loggerClient,
		servers:     servers,
		refresher:   refresher,
		redisClient: redisClient,
	}
}

func (a *App) Run() error {
	a.logger.Infof("🚀 Starting velodash v%s (gateway=%s weather=%s bikes=%s)",
		versionString(), a.cfg.GatewayAddr, a.cfg.WeatherAddr, a.cfg.BikesAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.refresher.Start(ctx)
	if a.cfg.StationRefreshInterval > 0 {
		a.logger.Info("station refresher started",
			logger.Duration("interval", a.cfg.StationRefreshInterval))
	} else {
		a.logger.Info("station refresher started (manual trigger only)")
	}

	errCh := make(chan error, len(a.servers))
	for _, srv := range a.servers {
		srv := srv
		go func() {
			if err := srv.Start(); err != nil {
				errCh <- fmt.Errorf("http server error: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("⏳ Shutting down gracefully...")
	case err := <-errCh:
		return err
	}

	a.refresher.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	for _, srv := range a.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warnf("failed to close redis: %v", err)
		} else {
			a.logger.Info("✅ Redis closed cleanly")
		}
	}

	a.logger.Info("✅ velodash stopped cleanly")
	return nil
}

// warmStart primes the empty station cache from the persisted snapshot.
// Failures only cost the warm start: the cache falls back to a lazy fetch.
func warmStart(store *redisstore.Store, cache *stations.Cache, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	snap, err := store.LoadSnapshot(ctx)
	if err != nil {
		log.Warn("failed to load persisted station snapshot", logger.Error(err))
		return
	}
	if snap == nil {
		log.Info("no persisted station snapshot, cache will load lazily")
		return
	}
	if cache.Prime(snap) {
		log.Info("station cache warm-started from redis",
			logger.Int("stations", len(snap.Stations)),
			logger.Time("fetched_at", snap.FetchedAt))
	}
}

func versionString() string {
	return version.Version
}

func loadTargets(cfg *config.Config) ([]backend.Target, error) {
	if cfg.BackendsFile == "" {
		return backends.Defaults(), nil
	}
	loaded, err := backends.NewLoader(cfg.BackendsFile).Load()
	if err != nil {
		return nil, err
	}
	return backends.NewMapper().MapTargets(loaded)
}
