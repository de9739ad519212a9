package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"eventhub/internal/shared/constants"
	"eventhub/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, cfg *Config) (*RateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRateLimiter(client, cfg), mr
}

func testConfig() *Config {
	return &Config{
		Enabled:                 true,
		WindowDuration:          time.Minute,
		DefaultRequests:         5,
		BookingCriticalRequests: 2,
		HealthRequests:          100,
	}
}

func TestSlidingWindowLimitsBursts(t *testing.T) {
	rl, _ := newLimiter(t, testConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBookingCritical)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 1-i, res.Remaining)
	}

	res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)

	// budgets are per client and per type
	res, err = rl.IsAllowed(ctx, "10.0.0.2", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeDefault)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestWindowSlides(t *testing.T) {
	rl, _ := newLimiter(t, testConfig())
	ctx := context.Background()
	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return clock }

	for i := 0; i < 2; i++ {
		_, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBookingCritical)
		require.NoError(t, err)
	}
	res, err := rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	clock = clock.Add(61 * time.Second)
	res, err = rl.IsAllowed(ctx, "10.0.0.1", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestBurstSharingOneTimestampCountsEveryRequest(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultRequests = 3
	rl, mr := newLimiter(t, cfg)
	ctx := context.Background()
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }

	allowed := 0
	for i := 0; i < 5; i++ {
		res, err := rl.IsAllowed(ctx, "10.0.0.3", RateLimitTypeDefault)
		require.NoError(t, err)
		if res.Allowed {
			allowed++
		}
	}
	assert.Equal(t, 3, allowed)

	members, err := mr.ZMembers(constants.RATE_LIMIT_PREFIX + "default:10.0.0.3")
	require.NoError(t, err)
	assert.Len(t, members, 3)
}

func TestWhitelistAndDisabledBypassRedis(t *testing.T) {
	cfg := testConfig()
	cfg.WhitelistedIPs = []string{"127.0.0.1"}
	rl, mr := newLimiter(t, cfg)
	mr.Close()

	res, err := rl.IsAllowed(context.Background(), "127.0.0.1", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	_, err = rl.IsAllowed(context.Background(), "10.0.0.9", RateLimitTypeBookingCritical)
	assert.Error(t, err)

	cfg.Enabled = false
	res, err = rl.IsAllowed(context.Background(), "10.0.0.9", RateLimitTypeBookingCritical)
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestGetRateLimitType(t *testing.T) {
	tests := []struct {
		method, path string
		want         RateLimitType
	}{
		{http.MethodGet, "/health", RateLimitTypeHealth},
		{http.MethodPost, "/api/v1/bookings", RateLimitTypeBookingCritical},
		{http.MethodDelete, "/api/v1/bookings/:id", RateLimitTypeBookingCritical},
		{http.MethodGet, "/api/v1/bookings/:id", RateLimitTypeBooking},
		{http.MethodGet, "/api/v1/events/:id/bookings", RateLimitTypeOrganizer},
		{http.MethodPost, "/api/v1/events", RateLimitTypeOrganizer},
		{http.MethodGet, "/api/v1/events/:id/availability", RateLimitTypePublic},
		{http.MethodGet, "/api/v1/users/me/events", RateLimitTypeUser},
		{http.MethodPost, "/api/v1/users/me/events/reconcile", RateLimitTypeUser},
		{http.MethodGet, "/api/v1/users/me/bookings", RateLimitTypeUser},
		{http.MethodGet, "/unknown", RateLimitTypeDefault},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, getRateLimitType(tt.method, tt.path), "%s %s", tt.method, tt.path)
	}
}

func TestMiddlewareRejectsOverBudget(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, _ := newLimiter(t, testConfig())

	router := gin.New()
	router.Use(Middleware(rl, logger.Discard()))
	router.POST("/api/v1/bookings", func(c *gin.Context) { c.Status(http.StatusCreated) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", nil)
		req.Header.Set("X-Real-IP", "192.0.2.7")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
	}
	assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestMiddlewareFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rl, mr := newLimiter(t, testConfig())
	mr.Close()

	router := gin.New()
	router.Use(Middleware(rl, logger.Discard()))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
