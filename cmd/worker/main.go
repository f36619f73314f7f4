package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
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

	if len(cfg.Kafka.Brokers) == 0 {
		log.Fatal("KAFKA_BROKERS is required for the worker")
	}
	if cfg.Storage.Backend == "memory" {
		log.Fatal("the worker needs shared storage; set STORAGE_BACKEND=postgres")
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	container, err := app.NewContainer(startCtx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize dependencies")
	}
	defer container.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: cfg.Worker.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server error")
		}
	}()

	consumer := queue.NewConsumer(
		cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.GroupID,
		container.Worker, container.RetryPolicy(), log,
	)

	log.WithFields(logrus.Fields{"topic": cfg.Kafka.Topic, "group_id": cfg.Kafka.GroupID}).Info("worker started")
	if err := consumer.Run(ctx); err != nil {
		log.WithError(err).Error("consumer stopped")
	}

	if err := consumer.Close(); err != nil {
		log.WithError(err).Warn("failed to close consumer")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = metricsServer.Shutdown(shutdownCtx)

	log.Info("worker exited")
}
