package queue

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"ridepool/internal/observability"
)

// LocalDispatcher runs jobs on goroutines of the current process.
type LocalDispatcher struct {
	ctx     context.Context
	handler Handler
	policy  RetryPolicy
	log     logrus.FieldLogger
	wg      sync.WaitGroup
}

var _ Dispatcher = (*LocalDispatcher)(nil)

// NewLocalDispatcher creates a dispatcher whose jobs run under ctx rather
// than the context of the caller that scheduled them.
func NewLocalDispatcher(ctx context.Context, handler Handler, policy RetryPolicy, log logrus.FieldLogger) *LocalDispatcher {
	return &LocalDispatcher{
		ctx:     ctx,
		handler: handler,
		policy:  policy,
		log:     log,
	}
}

// Dispatch schedules job and returns immediately.
func (d *LocalDispatcher) Dispatch(_ context.Context, job Job) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		run(d.ctx, d.handler, d.policy, d.log, job)
	}()
	return nil
}

// Wait blocks until every dispatched job has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}

// run executes job with retries and records the outcome.
func run(ctx context.Context, handler Handler, policy RetryPolicy, log logrus.FieldLogger, job Job) error {
	entry := log.WithFields(logrus.Fields{
		"job_type":   job.Type,
		"request_id": job.RequestID,
		"pool_id":    job.PoolID,
	})

	err := policy.Do(ctx, func(attempt int) error {
		err := handler.HandleJob(ctx, job)
		if err != nil {
			entry.WithError(err).WithField("attempt", attempt).Warn("job attempt failed")
		}
		return err
	})
	if err != nil {
		observability.JobsTotal.WithLabelValues(string(job.Type), "failed").Inc()
		entry.WithError(err).Error("job failed after retries")
		return err
	}

	observability.JobsTotal.WithLabelValues(string(job.Type), "succeeded").Inc()
	return nil
}
