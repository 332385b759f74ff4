package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/prohmpiriya/wedding-market/pkg/logger"
	"github.com/prohmpiriya/wedding-market/pkg/response"
)

// RateLimitConfig configures the per-client rate limiter
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP
	RequestsPerSecond float64
	Burst             int
	// IdleTTL drops limiters of clients not seen for this long
	IdleTTL time.Duration
	Logger  *logger.Logger
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type limiterStore struct {
	mu        sync.Mutex
	limiters  map[string]*clientLimiter
	limit     rate.Limit
	burst     int
	idleTTL   time.Duration
	lastSweep time.Time
}

func (s *limiterStore) get(ip string, now time.Time) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()

	if now.Sub(s.lastSweep) > s.idleTTL {
		for key, cl := range s.limiters {
			if now.Sub(cl.lastSeen) > s.idleTTL {
				delete(s.limiters, key)
			}
		}
		s.lastSweep = now
	}

	cl, ok := s.limiters[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.limiters[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// RateLimit rejects clients that exceed their token bucket with 429
func RateLimit(cfg *RateLimitConfig) gin.HandlerFunc {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.Get()
	}

	store := &limiterStore{
		limiters:  make(map[string]*clientLimiter),
		limit:     rate.Limit(cfg.RequestsPerSecond),
		burst:     cfg.Burst,
		idleTTL:   cfg.IdleTTL,
		lastSweep: time.Now(),
	}

	return func(c *gin.Context) {
		ip := c.ClientIP()
		if !store.get(ip, time.Now()).Allow() {
			log.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.TooManyRequests("Rate limit exceeded, try again later"))
			return
		}
		c.Next()
	}
}
