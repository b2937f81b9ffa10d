package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/linguaforge/linguaforge/internal/logger"
)

// Config holds Redis connection settings. An empty URL disables the Redis
// locker.
type Config struct {
	URL string `mapstructure:"url"`

	// TTL bounds how long a crashed holder can block a key.
	TTL time.Duration `mapstructure:"lock_ttl"`

	// Poll is the pause between acquisition attempts.
	Poll time.Duration `mapstructure:"lock_poll"`

	// Prefix namespaces lock keys.
	Prefix string `mapstructure:"lock_prefix"`
}

// DefaultConfig returns Redis lock defaults with Redis disabled.
func DefaultConfig() Config {
	return Config{
		TTL:    30 * time.Second,
		Poll:   50 * time.Millisecond,
		Prefix: "linguaforge:lock:",
	}
}

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker is a Locker shared by every process using the same Redis. Each
// holder writes a random token with SET NX PX and releases with a
// compare-and-delete script.
type RedisLocker struct {
	client *redis.Client
	cfg    Config
	log    *logger.Logger
}

// NewRedisClient parses url, connects and pings.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

// NewRedis creates a RedisLocker over client.
func NewRedis(client *redis.Client, cfg Config, log *logger.Logger) *RedisLocker {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Poll <= 0 {
		cfg.Poll = def.Poll
	}
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RedisLocker{client: client, cfg: cfg, log: log}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := r.cfg.Prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(r.cfg.Poll)
	defer ticker.Stop()
	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.cfg.TTL).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	return func() {
		// Release even if the caller's context is already done.
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		n, err := releaseScript.Run(relCtx, r.client, []string{redisKey}, token).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			r.log.Warn("failed to release lock", "key", key, "error", err)
			return
		}
		if n == 0 {
			r.log.Warn("lock expired before release", "key", key, "ttl", r.cfg.TTL)
		}
	}, nil
}
