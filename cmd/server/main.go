package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"ridepool/internal/app"
	"ridepool/internal/config"
	"ridepool/internal/logging"
	"ridepool/internal/queue"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("invalid configuration")
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	container, err := app.NewContainer(startCtx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize dependencies")
	}
	defer container.Close()

	// Jobs run under runCtx so in-flight work outlives the request that
	// scheduled it but stops on shutdown.
	runCtx, stopJobs := context.WithCancel(context.Background())
	defer stopJobs()

	dispatcher, waitJobs := newDispatcher(runCtx, container)

	server := wireServer(container, dispatcher)

	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	if cfg.Matching.SweepInterval > 0 {
		go sweep(runCtx, container, cfg.Matching.SweepInterval)
	}

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	stopJobs()
	waitJobs()

	log.Info("server exited")
}

// newDispatcher publishes jobs to Kafka when brokers are configured and runs
// them in-process otherwise. The returned func waits for in-process jobs and
// releases the dispatcher.
func newDispatcher(ctx context.Context, c *app.Container) (queue.Dispatcher, func()) {
	if brokers := c.Config.Kafka.Brokers; len(brokers) > 0 {
		d := queue.NewKafkaDispatcher(brokers, c.Config.Kafka.Topic, c.Config.Kafka.WriteTimeout)
		c.Log.WithField("topic", c.Config.Kafka.Topic).Info("publishing jobs to kafka")
		return d, func() {
			if err := d.Close(); err != nil {
				c.Log.WithError(err).Warn("failed to close kafka writer")
			}
		}
	}

	d := queue.NewLocalDispatcher(ctx, c.Worker, c.RetryPolicy(), c.Log)
	c.Log.Info("running jobs in-process")
	return d, d.Wait
}

// sweep runs a matching pass every interval so requests left pending by a
// failed or skipped pass are retried.
func sweep(ctx context.Context, c *app.Container, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Worker.RunPass(ctx); err != nil && ctx.Err() == nil {
				c.Log.WithError(err).Error("sweep pass failed")
			}
		}
	}
}

// wireServer builds the handlers and returns the HTTP server.
func wireServer(c *app.Container, dispatcher queue.Dispatcher) *http.Server {
	router := app.NewRouter(app.RouterDeps{
		Handlers:    c.Handlers(dispatcher),
		RedisClient: c.RedisClient,
		NewRelicApp: c.NewRelicApp,
		Log:         c.Log,
	})

	return &http.Server{
		Addr:         ":" + c.Config.Server.Port,
		Handler:      router,
		ReadTimeout:  c.Config.Server.ReadTimeout,
		WriteTimeout: c.Config.Server.WriteTimeout,
	}
}
