package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridepool/internal/config"
	"ridepool/internal/handler"
	"ridepool/internal/pricing"
	"ridepool/internal/queue"
	internalRedis "ridepool/internal/redis"
	"ridepool/internal/repository"
	"ridepool/internal/repository/memory"
	"ridepool/internal/repository/postgres"
	"ridepool/internal/routing"
	"ridepool/internal/service"
)

const newRelicShutdownTimeout = 5 * time.Second

// Container holds the infrastructure clients and services shared by the
// server and worker processes.
type Container struct {
	Config      *config.Config
	Log         *logrus.Logger
	DB          *sql.DB       // nil with the memory backend
	RedisClient *redis.Client // nil when Redis is disabled
	NewRelicApp *newrelic.Application

	Repos repository.Repositories
	Tx    repository.Transactor

	Engine *service.PoolingEngine
	Routes *service.RouteService
	Surge  *service.SurgeService
	Worker *service.Worker

	locationStore internalRedis.LocationStoreInterface
	statusCache   internalRedis.StatusCache
}

// NewContainer connects to the configured backends and builds the services
// that do not depend on a dispatcher.
func NewContainer(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	c.NewRelicApp = newNewRelic(cfg.NewRelic, log)

	switch cfg.Storage.Backend {
	case "memory":
		store := memory.NewStore()
		c.Repos = store.Repositories()
		c.Tx = store
		log.Warn("using in-memory storage; data is lost on exit")
	default:
		db, err := NewDatabase(ctx, cfg.Database, c.NewRelicApp, log)
		if err != nil {
			return nil, err
		}
		c.DB = db
		c.Repos = postgres.NewRepositories(db)
		c.Tx = postgres.NewTransactor(db)
		log.Info("connected to PostgreSQL")
	}

	var locker internalRedis.Locker
	if cfg.Redis.Enabled {
		client, err := NewRedisClient(ctx, cfg.Redis, c.NewRelicApp)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.RedisClient = client
		c.locationStore = internalRedis.NewLocationStore(client)
		c.statusCache = internalRedis.NewCacheStore(client)
		locker = internalRedis.NewLockStore(client)
		log.Info("connected to Redis")
	} else {
		log.Warn("redis disabled; matching passes run without the advisory lock")
	}

	engineCfg := service.EngineConfig{
		PickupRadiusKm:    cfg.Matching.PickupRadiusKm,
		DetourKmPerMinute: cfg.Matching.DetourKmPerMinute,
		LockTTL:           cfg.Matching.LockTTL,
		LockWait:          cfg.Matching.LockWait,
		LockRetryInterval: cfg.Matching.LockRetryInterval,
	}
	c.Engine = service.NewPoolingEngine(c.Repos, c.Tx, locker, engineCfg, log)
	c.Routes = service.NewRouteService(c.Repos, c.Tx, routing.NewSequencer(), c.statusCache, cfg.Matching.RouteSpeedKmPerMin, log)

	surgeCfg := service.DefaultSurgeConfig()
	surgeCfg.RadiusKm = cfg.Matching.SurgeRadiusKm
	c.Surge = service.NewSurgeService(c.locationStore, c.Repos.Requests, c.Repos.Vehicles, surgeCfg, log)

	c.Worker = service.NewWorker(c.Engine, c.Routes, log)

	return c, nil
}

// RetryPolicy returns the configured job retry policy.
func (c *Container) RetryPolicy() queue.RetryPolicy {
	return queue.RetryPolicy{
		MaxRetries: c.Config.Tasks.MaxRetries,
		Backoff:    c.Config.Tasks.RetryBackoff,
	}
}

// Handlers builds the HTTP handlers on top of dispatcher.
func (c *Container) Handlers(dispatcher queue.Dispatcher) Handlers {
	pricingEngine := pricing.NewEngine(pricing.Config{
		BaseFare:              c.Config.Pricing.BaseFare,
		RatePerKm:             c.Config.Pricing.RatePerKm,
		DetourPenaltyFraction: c.Config.Pricing.DetourPenaltyFraction,
	})

	requests := service.NewRequestService(
		c.Repos, c.Tx, dispatcher, c.statusCache, pricingEngine, c.Surge, routing.NewSequencer(), c.Log,
	)

	return Handlers{
		Riders:   handler.NewRiderHandler(service.NewRiderService(c.Repos.Riders, c.Log)),
		Requests: handler.NewRequestHandler(requests),
		Vehicles: handler.NewVehicleHandler(service.NewVehicleService(c.locationStore, c.Repos.Vehicles, c.Tx, c.Log)),
		Pools:    handler.NewPoolHandler(c.Routes, c.Worker),
		Quotes:   handler.NewQuoteHandler(service.NewQuoteService(pricingEngine)),
	}
}

// Close releases every client the container opened.
func (c *Container) Close() {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			c.Log.WithError(err).Warn("failed to close redis client")
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			c.Log.WithError(err).Warn("failed to close database")
		}
	}
	if c.NewRelicApp != nil {
		c.NewRelicApp.Shutdown(newRelicShutdownTimeout)
	}
}

func newNewRelic(cfg config.NewRelicConfig, log logrus.FieldLogger) *newrelic.Application {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil
	}

	nrApp, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		log.WithError(err).Error("failed to initialize New Relic")
		return nil
	}

	log.WithField("app", cfg.AppName).Info("New Relic enabled")
	return nrApp
}
