package middleware

import (
	"net/http"
	"sync"
	"time"

	"workspace-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// userLimiter holds one user's token bucket and their last access time.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter enforces a per-user request budget. Entries idle longer
// than twice the cleanup interval are evicted by a background loop.
type RateLimiter struct {
	limit rate.Limit
	burst int

	mu       sync.Mutex
	limiters map[uint]*userLimiter

	cleanupInterval time.Duration
	stopCh          chan struct{}
}

// NewRateLimiter creates a limiter allowing burst requests per user,
// refilled at limit. Call Stop to end the cleanup goroutine.
func NewRateLimiter(limit rate.Limit, burst int) *RateLimiter {
	rl := &RateLimiter{
		limit:           limit,
		burst:           burst,
		limiters:        make(map[uint]*userLimiter),
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// NewResendVerificationLimiter returns the limiter for the
// resend-verification endpoint: 3 requests per hour per user.
func NewResendVerificationLimiter() *RateLimiter {
	return NewRateLimiter(rate.Limit(3.0/3600.0), 3)
}

// Stop ends the background cleanup goroutine.
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// Allow reports whether the user may perform another request now.
func (rl *RateLimiter) Allow(userID uint) bool {
	return rl.getOrCreate(userID).Allow()
}

// Middleware rejects requests over the per-user budget with 429. It must
// run after AuthMiddleware, which puts the user ID in the context.
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			log := logger.FromContext(c)

			userID, ok := c.Get("user_id").(uint)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"code": "UNAUTHORIZED", "error": "authentication required"})
			}

			if !rl.Allow(userID) {
				log.Warn("Rate limit exceeded", zap.Uint("user_id", userID))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"code": "RATE_LIMITED", "error": "too many requests, try again later"})
			}

			return next(c)
		}
	}
}

func (rl *RateLimiter) getOrCreate(userID uint) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if ul, exists := rl.limiters[userID]; exists {
		ul.lastAccess = time.Now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(rl.limit, rl.burst)
	rl.limiters[userID] = &userLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCh:
			return
		}
	}
}

func (rl *RateLimiter) cleanup() {
	ttl := rl.cleanupInterval * 2
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for userID, ul := range rl.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(rl.limiters, userID)
		}
	}
}
