package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridepool/internal/observability"
)

const (
	idempotencyHeader = "Idempotency-Key"
	replayedHeader    = "Idempotent-Replayed"
	idempotencyPrefix = "idempotency"
	idempotencyTTL    = 24 * time.Hour
)

// storedReply is a served response kept for replay.
type storedReply struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
}

// bodyRecorder copies everything written to the client.
type bodyRecorder struct {
	gin.ResponseWriter
	buf bytes.Buffer
}

func (r *bodyRecorder) Write(b []byte) (int, error) {
	r.buf.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *bodyRecorder) WriteString(s string) (int, error) {
	r.buf.WriteString(s)
	return r.ResponseWriter.WriteString(s)
}

type replayStore struct {
	client *redis.Client
	ttl    time.Duration
}

// load returns nil without error when nothing is stored under key.
func (s replayStore) load(ctx context.Context, key string) (*storedReply, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var reply storedReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, fmt.Errorf("failed to decode stored reply: %w", err)
	}
	return &reply, nil
}

func (s replayStore) save(ctx context.Context, key string, reply storedReply) error {
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// replayKey scopes a client key to the method and concrete path, so the same
// key on /v1/requests and /v1/riders never collides.
func replayKey(c *gin.Context, key string) string {
	return strings.Join([]string{idempotencyPrefix, c.Request.Method, c.Request.URL.Path, key}, ":")
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

// IdempotencyMiddleware serves the stored reply when a mutating request
// repeats an Idempotency-Key already answered on the same route. Server
// errors are not stored. A nil client disables the middleware, and a Redis
// failure lets the request through unprotected.
func IdempotencyMiddleware(redisClient *redis.Client, log logrus.FieldLogger) gin.HandlerFunc {
	if redisClient == nil {
		return func(c *gin.Context) { c.Next() }
	}
	store := replayStore{client: redisClient, ttl: idempotencyTTL}

	return func(c *gin.Context) {
		key := c.GetHeader(idempotencyHeader)
		if key == "" || !mutating(c.Request.Method) {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		storeKey := replayKey(c, key)
		entry := log.WithFields(logrus.Fields{"idempotency_key": key, "path": c.Request.URL.Path})

		reply, err := store.load(ctx, storeKey)
		switch {
		case err != nil:
			observability.IdempotencyTotal.WithLabelValues("lookup_failed").Inc()
			entry.WithError(err).Warn("idempotency lookup failed, serving request")
			c.Next()
			return
		case reply != nil:
			observability.IdempotencyTotal.WithLabelValues("replayed").Inc()
			contentType := reply.ContentType
			if contentType == "" {
				contentType = "application/json"
			}
			c.Header(replayedHeader, "true")
			c.Data(reply.Status, contentType, reply.Body)
			c.Abort()
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		status := rec.Status()
		if status >= http.StatusInternalServerError {
			return
		}

		err = store.save(ctx, storeKey, storedReply{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.buf.Bytes(),
		})
		if err != nil {
			observability.IdempotencyTotal.WithLabelValues("store_failed").Inc()
			entry.WithError(err).Warn("failed to store idempotent reply")
			return
		}
		observability.IdempotencyTotal.WithLabelValues("stored").Inc()
	}
}
