package limiter

import (
	"github.com/teoh/bintangbuddy/internal/config"
	"github.com/teoh/bintangbuddy/internal/limiter/memory"
	"github.com/teoh/bintangbuddy/internal/limiter/redis"
)

// New returns a Redis backed limiter when Redis is enabled, otherwise an
// in-process token bucket
func New(rateCfg config.RateLimitConfig, redisCfg config.RedisConfig) (Limiter, error) {
	if redisCfg.Enabled {
		return redis.NewLimiter(redisCfg)
	}
	return memory.NewLimiter(rateCfg), nil
}

// Mode names the kind of limiter for logs: "redis", "memory" or "unlimited"
func Mode(l Limiter) string {
	switch l := l.(type) {
	case *redis.Limiter:
		return "redis"
	case *memory.Limiter:
		if l.Unlimited() {
			return "unlimited"
		}
		return "memory"
	default:
		return "custom"
	}
}
