package auth

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter throttles sign-in by client IP. Only rejected identity tokens
// count: a client that collects MaxAttempts failures within the trailing
// WindowDuration is locked out for LockoutDuration.
type RateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	clients map[string]*signInFailures

	stop     chan struct{}
	stopOnce sync.Once
}

// signInFailures holds the failure times still inside the window, oldest first.
type signInFailures struct {
	at          []time.Time
	lockedUntil time.Time
}

// RateLimitConfig configures a RateLimiter. Zero fields take the values from
// DefaultRateLimitConfig.
type RateLimitConfig struct {
	MaxAttempts     int
	WindowDuration  time.Duration
	LockoutDuration time.Duration
	CleanupInterval time.Duration
}

// DefaultRateLimitConfig allows 5 failed callbacks per 15 minutes, then locks
// the client out for 30 minutes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxAttempts:     5,
		WindowDuration:  15 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
}

func (c RateLimitConfig) withDefaults() RateLimitConfig {
	d := DefaultRateLimitConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = d.MaxAttempts
	}
	if c.WindowDuration <= 0 {
		c.WindowDuration = d.WindowDuration
	}
	if c.LockoutDuration <= 0 {
		c.LockoutDuration = d.LockoutDuration
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = d.CleanupInterval
	}
	return c
}

// NewRateLimiter starts a limiter and its background pruning. Call Stop when
// done.
func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	rl := &RateLimiter{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		clients: make(map[string]*signInFailures),
		stop:    make(chan struct{}),
	}
	go rl.pruneLoop()
	return rl
}

// Stop ends background pruning. Safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

// Allow reports whether client may attempt a sign-in, and if not, how long
// until it may.
func (rl *RateLimiter) Allow(client string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	f, ok := rl.clients[client]
	if !ok {
		return true, 0
	}
	if now.Before(f.lockedUntil) {
		return false, f.lockedUntil.Sub(now)
	}
	return true, 0
}

// RecordFailure notes a rejected token from client. It reports whether the
// client is now locked out and for how long.
func (rl *RateLimiter) RecordFailure(client string) (bool, time.Duration) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	f, ok := rl.clients[client]
	if !ok {
		f = &signInFailures{}
		rl.clients[client] = f
	}
	f.at = append(rl.inWindow(f.at, now), now)

	if len(f.at) < rl.cfg.MaxAttempts {
		return false, 0
	}
	f.lockedUntil = now.Add(rl.cfg.LockoutDuration)
	f.at = nil
	return true, rl.cfg.LockoutDuration
}

// RecordSuccess forgets client's failures.
func (rl *RateLimiter) RecordSuccess(client string) {
	rl.mu.Lock()
	delete(rl.clients, client)
	rl.mu.Unlock()
}

// inWindow drops failures older than the window. Callers hold mu.
func (rl *RateLimiter) inWindow(at []time.Time, now time.Time) []time.Time {
	cutoff := now.Add(-rl.cfg.WindowDuration)
	i := 0
	for i < len(at) && !at[i].After(cutoff) {
		i++
	}
	return at[i:]
}

func (rl *RateLimiter) pruneLoop() {
	ticker := time.NewTicker(rl.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.prune()
		case <-rl.stop:
			return
		}
	}
}

// prune forgets clients with no live failures and no active lockout.
func (rl *RateLimiter) prune() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for client, f := range rl.clients {
		f.at = rl.inWindow(f.at, now)
		if len(f.at) == 0 && !now.Before(f.lockedUntil) {
			delete(rl.clients, client)
		}
	}
}

// RateLimitMiddleware answers 429 with Retry-After for locked-out clients.
// Handlers report outcomes through RecordFailure and RecordSuccess.
func (rl *RateLimiter) RateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, wait := rl.Allow(c.ClientIP()); !ok {
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many failed sign-in attempts",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
