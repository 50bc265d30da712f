package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// Key prefix for blob write leases
	keyPrefix = "protoreg:lock:"

	defaultTTL        = 30 * time.Second
	defaultRetryDelay = 50 * time.Millisecond
)

// releaseScript deletes the lease only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisConfig configures the distributed lock.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int
	TTL        time.Duration // lease length; a crashed holder frees the blob after this
	RetryDelay time.Duration
}

// Redis serializes writers across processes with a SET NX lease.
type Redis struct {
	client *redis.Client
	cfg    RedisConfig
	logger zerolog.Logger
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(cfg RedisConfig, logger zerolog.Logger) (*Redis, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info().
		Str("redis_addr", cfg.Addr).
		Dur("lease", cfg.TTL).
		Msg("connected to Redis for blob write locks")

	return &Redis{
		client: client,
		cfg:    cfg,
		logger: logger.With().Str("component", "blob_lock").Logger(),
	}, nil
}

// Backend names the lock implementation.
func (r *Redis) Backend() string { return "redis" }

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Acquire polls for the lease until it is granted or ctx is done.
func (r *Redis) Acquire(ctx context.Context, key string) (Release, error) {
	return timed(r.Backend(), func() (Release, error) {
		redisKey := keyFor(key)
		token := uuid.NewString()

		ticker := time.NewTicker(r.cfg.RetryDelay)
		defer ticker.Stop()

		for {
			ok, err := r.client.SetNX(ctx, redisKey, token, r.cfg.TTL).Result()
			if err != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
				}
				return nil, fmt.Errorf("acquire lease %s: %w", key, err)
			}
			if ok {
				break
			}

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s: %w: %w", key, ErrNotAcquired, ctx.Err())
			case <-ticker.C:
			}
		}

		var once sync.Once
		return func() {
			once.Do(func() {
				// Release even if the request context is already cancelled.
				releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
					r.logger.Error().Err(err).Str("key", key).Msg("failed to release blob lease")
				}
			})
		}, nil
	})
}

func keyFor(blob string) string {
	return keyPrefix + blob
}
