package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	platformredis "unify/internal/platform/redis"
)

// releaseScript deletes a lock key only if this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

const acquirePollInterval = 25 * time.Millisecond

// Redis serializes resolutions across instances with per-key SET NX locks.
// The TTL bounds how long a crashed holder can block others; a healthy holder
// finishes a resolution well inside it.
type Redis struct {
	client *platformredis.Client
	ttl    time.Duration
	token  string
	prefix string
}

// NewRedis constructs a Redis-backed attribute lock.
func NewRedis(client *platformredis.Client, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		ttl:    ttl,
		token:  uuid.NewString(),
		prefix: "unify:lock:",
	}
}

// Lock acquires every key in order, polling held ones until the context ends.
func (r *Redis) Lock(ctx context.Context, keys []string) error {
	for i, key := range keys {
		if err := r.lockOne(ctx, key); err != nil {
			r.Unlock(context.WithoutCancel(ctx), keys[:i])
			return err
		}
	}
	return nil
}

// Unlock releases the given keys if this instance still holds them.
func (r *Redis) Unlock(ctx context.Context, keys []string) {
	for _, key := range keys {
		_ = releaseScript.Run(ctx, r.client, []string{r.prefix + key}, r.token).Err()
	}
}

func (r *Redis) lockOne(ctx context.Context, key string) error {
	ticker := time.NewTicker(acquirePollInterval)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, r.prefix+key, r.token, r.ttl).Result()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
