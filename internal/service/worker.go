package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"ridepool/internal/queue"
	"ridepool/internal/repository"
)

// Worker executes background jobs against the pooling engine and route
// service.
type Worker struct {
	engine *PoolingEngine
	routes *RouteService
	log    logrus.FieldLogger
}

var _ queue.Handler = (*Worker)(nil)

// NewWorker creates a new Worker.
func NewWorker(engine *PoolingEngine, routes *RouteService, log logrus.FieldLogger) *Worker {
	return &Worker{
		engine: engine,
		routes: routes,
		log:    log.WithField("component", "worker"),
	}
}

// HandleJob runs a single job. Errors are returned for retry.
func (w *Worker) HandleJob(ctx context.Context, job queue.Job) error {
	switch job.Type {
	case queue.JobMatch:
		_, err := w.RunPass(ctx)
		return err
	case queue.JobRouteSync:
		return w.syncPool(ctx, job.PoolID)
	default:
		return fmt.Errorf("%w: %q", queue.ErrUnknownJob, job.Type)
	}
}

// RunPass runs a matching pass and resequences every pool it changed. Pools
// touched before an interrupted pass stopped are still resequenced.
func (w *Worker) RunPass(ctx context.Context) (*PassResult, error) {
	result, err := w.engine.RunMatchingPass(ctx)
	if result == nil {
		return nil, err
	}

	syncCtx := ctx
	if err != nil {
		syncCtx = context.WithoutCancel(ctx)
	}

	for _, poolID := range result.TouchedPools {
		if err := w.routes.SyncPool(syncCtx, poolID); err != nil {
			w.log.WithError(err).WithField("pool_id", poolID).Error("route sync after pass failed")
		}
	}
	return result, err
}

func (w *Worker) syncPool(ctx context.Context, poolID string) error {
	err := w.routes.SyncPool(ctx, poolID)
	if errors.Is(err, repository.ErrNotFound) {
		w.log.WithField("pool_id", poolID).Warn("pool not found, dropping route sync")
		return nil
	}
	return err
}
