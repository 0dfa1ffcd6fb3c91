// Package redis provides a Redis/Valkey backed fixed-window limiter, letting
// several processes share one request budget against the booking service
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teoh/bintangbuddy/internal/config"
)

// fixedWindowScript increments the window counter and starts its expiry on
// first use. It returns the new count and the window's remaining milliseconds.
var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
return {current, ttl}
`)

// Limiter implements the limiter interface with Redis storage
type Limiter struct {
	client *redis.Client
	key    string
	limit  int64
	window time.Duration
}

// NewLimiter creates a new Redis limiter
func NewLimiter(cfg config.RedisConfig) (*Limiter, error) {
	var client *redis.Client

	// Use URI if provided, otherwise build connection from individual parameters
	if cfg.URI != "" {
		opt, err := redis.ParseURL(cfg.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URI: %w", err)
		}

		// Use DB from config if not specified in the URI
		if opt.DB == 0 {
			opt.DB = cfg.DB
		}

		// Use password from config if not in URI
		if opt.Password == "" && cfg.Password != "" {
			opt.Password = cfg.Password
		}

		client = redis.NewClient(opt)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Username: cfg.Username,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	limit := int64(cfg.Limit)
	if limit <= 0 {
		limit = 20
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Second
	}

	return &Limiter{
		client: client,
		key:    cfg.KeyPrefix + "ratelimit:outbound",
		limit:  limit,
		window: window,
	}, nil
}

// Close closes the Redis connection
func (l *Limiter) Close() error {
	return l.client.Close()
}

// Ping checks the Redis connection
func (l *Limiter) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// Wait takes one slot from the current window, sleeping until the next
// window when the current one is exhausted
func (l *Limiter) Wait(ctx context.Context) error {
	for {
		count, remaining, err := l.incr(ctx)
		if err != nil {
			return fmt.Errorf("failed to take rate limit slot: %w", err)
		}
		if count <= l.limit {
			return nil
		}

		if remaining <= 0 || remaining > l.window {
			remaining = l.window
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (l *Limiter) incr(ctx context.Context) (int64, time.Duration, error) {
	ms := l.window.Milliseconds()
	if ms <= 0 {
		ms = 1
	}
	res, err := fixedWindowScript.Run(ctx, l.client, []string{l.key}, ms).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, fmt.Errorf("unexpected rate limit script result %v", res)
	}
	count, err := toInt64(res[0])
	if err != nil {
		return 0, 0, err
	}
	ttl, err := toInt64(res[1])
	if err != nil {
		return 0, 0, err
	}
	return count, time.Duration(ttl) * time.Millisecond, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected redis script result type %T", v)
	}
}
