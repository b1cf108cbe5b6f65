package security

import (
	"fmt"
	"strings"
	"time"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-gate/utils"
)

const (
	defaultMaxPerWindow = 30
	defaultWindow       = time.Minute
)

// RateLimiter throttles the public discovery endpoints (wedding listing and
// session creation). Passcode entry is never routed through it.
type RateLimiter struct {
	redis        *redis.Client
	maxPerWindow int64
	window       time.Duration
	log          zerolog.Logger
}

func NewRateLimiter(redisClient *redis.Client, logger zerolog.Logger) *RateLimiter {
	return &RateLimiter{
		redis:        redisClient,
		maxPerWindow: defaultMaxPerWindow,
		window:       defaultWindow,
		log:          utils.Component(logger, "antibot"),
	}
}

// AntiBot rejects crawler user agents and clients above the per-IP request
// budget. Redis errors let the request through.
func (r *RateLimiter) AntiBot(e *core.RequestEvent) error {
	if isSuspiciousUserAgent(e.Request.Header.Get("User-Agent")) {
		return apis.NewForbiddenError("Access denied", nil)
	}

	ip := clientIP(e)
	key := fmt.Sprintf("antibot:%s", ip)
	ctx := e.Request.Context()

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		r.log.Warn().Err(err).Str("ip", ip).Msg("anti-bot counter unavailable")
		return e.Next()
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}
	if count > r.maxPerWindow {
		return apis.NewTooManyRequestsError("Too many requests", nil)
	}

	return e.Next()
}

func clientIP(e *core.RequestEvent) string {
	if e.App != nil {
		return e.RealIP()
	}
	return e.RemoteIP()
}

func isSuspiciousUserAgent(ua string) bool {
	if strings.TrimSpace(ua) == "" {
		return true
	}
	suspicious := []string{"bot", "crawler", "spider", "scraper"}
	lower := strings.ToLower(ua)
	for _, pattern := range suspicious {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
