// Package queue schedules matching passes and route syncs as background jobs,
// either in-process or through Kafka.
package queue

import (
	"context"
	"errors"
	"time"
)

// JobType identifies the work a job performs.
type JobType string

const (
	// JobMatch runs a matching pass over all pending requests.
	JobMatch JobType = "match"
	// JobRouteSync recomputes the stop order of one pool.
	JobRouteSync JobType = "route_sync"
)

// ErrUnknownJob is returned for jobs with an unrecognised type.
var ErrUnknownJob = errors.New("unknown job type")

// Job is the unit of background work.
type Job struct {
	Type       JobType   `json:"type"`
	RequestID  string    `json:"request_id,omitempty"`
	PoolID     string    `json:"pool_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// Key returns the partitioning key of the job.
func (j Job) Key() string {
	if j.PoolID != "" {
		return j.PoolID
	}
	return j.RequestID
}

// Handler executes jobs.
type Handler interface {
	HandleJob(ctx context.Context, job Job) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, job Job) error

// HandleJob calls f.
func (f HandlerFunc) HandleJob(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// Dispatcher schedules jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, job Job) error
}

// MatchJob returns a job that runs a matching pass on behalf of requestID.
func MatchJob(requestID string) Job {
	return Job{Type: JobMatch, RequestID: requestID, EnqueuedAt: time.Now()}
}

// RouteSyncJob returns a job that resequences poolID.
func RouteSyncJob(poolID string) Job {
	return Job{Type: JobRouteSync, PoolID: poolID, EnqueuedAt: time.Now()}
}
