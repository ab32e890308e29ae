package auth

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLimiter returns a limiter driven by the returned clock.
func newTestLimiter(t *testing.T, maxAttempts int) (*RateLimiter, *time.Time) {
	t.Helper()

	rl := NewRateLimiter(RateLimitConfig{
		MaxAttempts:     maxAttempts,
		WindowDuration:  10 * time.Minute,
		LockoutDuration: 30 * time.Minute,
		CleanupInterval: time.Hour,
	})
	t.Cleanup(rl.Stop)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestRateLimiter_LocksOutAfterMaxFailures(t *testing.T) {
	rl, _ := newTestLimiter(t, 3)

	for i := 0; i < 2; i++ {
		locked, _ := rl.RecordFailure("10.0.0.1")
		assert.False(t, locked)
		allowed, _ := rl.Allow("10.0.0.1")
		assert.True(t, allowed, "failure %d stays under the budget", i+1)
	}

	locked, lockout := rl.RecordFailure("10.0.0.1")
	assert.True(t, locked)
	assert.Equal(t, 30*time.Minute, lockout)

	allowed, retryAfter := rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Equal(t, 30*time.Minute, retryAfter)

	allowed, _ = rl.Allow("10.0.0.2")
	assert.True(t, allowed, "other clients are unaffected")
}

func TestRateLimiter_FailuresAgeOutOfWindow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	rl.RecordFailure("10.0.0.1")
	*now = now.Add(6 * time.Minute)
	rl.RecordFailure("10.0.0.1")

	// The first failure is now 11 minutes old and no longer counts.
	*now = now.Add(5 * time.Minute)
	locked, _ := rl.RecordFailure("10.0.0.1")
	assert.False(t, locked)

	locked, _ = rl.RecordFailure("10.0.0.1")
	assert.True(t, locked, "three failures inside ten minutes lock the client")
}

func TestRateLimiter_LockoutExpires(t *testing.T) {
	rl, now := newTestLimiter(t, 1)

	locked, _ := rl.RecordFailure("10.0.0.1")
	require.True(t, locked)

	*now = now.Add(20 * time.Minute)
	allowed, retryAfter := rl.Allow("10.0.0.1")
	assert.False(t, allowed)
	assert.Equal(t, 10*time.Minute, retryAfter)

	*now = now.Add(10 * time.Minute)
	allowed, _ = rl.Allow("10.0.0.1")
	assert.True(t, allowed)
}

func TestRateLimiter_SuccessForgetsFailures(t *testing.T) {
	rl, _ := newTestLimiter(t, 2)

	rl.RecordFailure("10.0.0.1")
	rl.RecordSuccess("10.0.0.1")

	locked, _ := rl.RecordFailure("10.0.0.1")
	assert.False(t, locked, "the earlier failure was cleared by the successful sign-in")
}

func TestRateLimiter_Prune(t *testing.T) {
	rl, now := newTestLimiter(t, 1)

	rl.RecordFailure("locked")
	rl.RecordFailure("other")
	rl.RecordSuccess("other")

	rl.prune()
	assert.Len(t, rl.clients, 1, "an active lockout is kept")

	*now = now.Add(31 * time.Minute)
	rl.prune()
	assert.Empty(t, rl.clients)
}

func TestRateLimiter_StopIsIdempotent(t *testing.T) {
	rl := NewRateLimiter(RateLimitConfig{})
	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
	assert.Equal(t, DefaultRateLimitConfig(), rl.cfg)
}

func TestRateLimitMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)

	router := gin.New()
	router.GET("/auth/callback", rl.RateLimitMiddleware(), func(c *gin.Context) {
		rl.RecordFailure(c.ClientIP())
		c.Status(http.StatusUnauthorized)
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, strconv.Itoa(int((30*time.Minute).Seconds())+1), rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), `"code":"rate_limited"`)
}
