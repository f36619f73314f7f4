package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "lock:"

// releaseScript deletes the lock only if it still holds our token, so an
// expired lock re-acquired by another worker is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore handles distributed locking in Redis.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// TryAcquire attempts to take the named lock for ttl without waiting.
// Returns a nil Lock and nil error if another holder has it.
func (s *LockStore) TryAcquire(ctx context.Context, name string, ttl time.Duration) (Lock, error) {
	key := lockKeyPrefix + name
	token := uuid.New().String()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	return &heldLock{client: s.client, key: key, token: token}, nil
}

type heldLock struct {
	client *redis.Client
	key    string
	token  string
}

// Release frees the lock if it is still ours.
func (l *heldLock) Release(ctx context.Context) error {
	return releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err()
}
