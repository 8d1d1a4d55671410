package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/civilregistry/backend/internal/config"
)

// RateLimiter implements rate limiting for API endpoints
type RateLimiter struct {
	ipLimiters      map[string]*rate.Limiter
	authLimiters    map[string]*rate.Limiter
	ipMutex         sync.Mutex
	authMutex       sync.Mutex
	ipLimiterRate   rate.Limit
	authLimiterRate rate.Limit
	ipBurst         int
	authBurst       int
	cleanupTicker   *time.Ticker
	done            chan struct{}
	stopOnce        sync.Once
}

// NewRateLimiter creates a new rate limiter from the security settings
func NewRateLimiter(cfg config.SecurityConfig) *RateLimiter {
	limiter := &RateLimiter{
		ipLimiters:      make(map[string]*rate.Limiter),
		authLimiters:    make(map[string]*rate.Limiter),
		ipLimiterRate:   rate.Limit(cfg.IPRateLimit),
		authLimiterRate: rate.Limit(cfg.AuthRateLimit / 60),
		ipBurst:         cfg.IPRateBurst,
		authBurst:       cfg.AuthRateBurst,
		cleanupTicker:   time.NewTicker(15 * time.Minute),
		done:            make(chan struct{}),
	}

	go limiter.cleanup()

	return limiter
}

// cleanup drops limiters that have refilled completely, which are
// indistinguishable from fresh ones
func (rl *RateLimiter) cleanup() {
	for {
		select {
		case <-rl.done:
			return
		case <-rl.cleanupTicker.C:
			rl.ipMutex.Lock()
			prune(rl.ipLimiters, rl.ipBurst)
			rl.ipMutex.Unlock()

			rl.authMutex.Lock()
			prune(rl.authLimiters, rl.authBurst)
			rl.authMutex.Unlock()
		}
	}
}

func prune(limiters map[string]*rate.Limiter, burst int) {
	for key, limiter := range limiters {
		if limiter.Tokens() >= float64(burst) {
			delete(limiters, key)
		}
	}
}

// Stop stops the rate limiter cleanup
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		rl.cleanupTicker.Stop()
		close(rl.done)
	})
}

func (rl *RateLimiter) getIPLimiter(ip string) *rate.Limiter {
	rl.ipMutex.Lock()
	defer rl.ipMutex.Unlock()

	limiter, exists := rl.ipLimiters[ip]
	if !exists {
		limiter = rate.NewLimiter(rl.ipLimiterRate, rl.ipBurst)
		rl.ipLimiters[ip] = limiter
	}
	return limiter
}

func (rl *RateLimiter) getAuthLimiter(key string) *rate.Limiter {
	rl.authMutex.Lock()
	defer rl.authMutex.Unlock()

	limiter, exists := rl.authLimiters[key]
	if !exists {
		limiter = rate.NewLimiter(rl.authLimiterRate, rl.authBurst)
		rl.authLimiters[key] = limiter
	}
	return limiter
}

// IPRateLimiterMiddleware limits requests based on IP address
func (rl *RateLimiter) IPRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.getIPLimiter(c.ClientIP()).Allow() {
			abort(c, http.StatusTooManyRequests, "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}

// AuthRateLimiterMiddleware limits login and registration attempts per IP and email
func (rl *RateLimiter) AuthRateLimiterMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
		if err != nil {
			abort(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		// the handler reads the body again
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		var requestBody struct {
			Email string `json:"email"`
		}
		if json.Unmarshal(body, &requestBody) == nil && requestBody.Email != "" {
			key := c.ClientIP() + ":" + strings.ToLower(strings.TrimSpace(requestBody.Email))
			if !rl.getAuthLimiter(key).Allow() {
				abort(c, http.StatusTooManyRequests, "Too many authentication attempts, please try again later")
				return
			}
		}

		c.Next()
	}
}
