package middleware

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Chicken/VenaaRauhassa/internal/metrics"
)

func ok(c *fiber.Ctx) error {
	return c.SendString("ok")
}

func TestRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	now := time.Date(2026, 10, 15, 12, 30, 10, 0, time.UTC)
	app := fiber.New()
	app.Use(RateLimitMiddleware(rdb, RateLimitConfig{PerMinute: 2, Now: func() time.Time { return now }}))
	app.Get("/", ok)

	for i, want := range []int{200, 200, 429} {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, "request %d", i+1)
	}

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
	assert.Equal(t, "51", resp.Header.Get("Retry-After"))

	now = now.Add(time.Minute)
	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode, "a new window starts every minute")
	assert.Equal(t, "1", resp.Header.Get("X-RateLimit-Remaining"))

	keys := mr.Keys()
	require.Len(t, keys, 2)
	for _, key := range keys {
		assert.Greater(t, mr.TTL(key), time.Duration(0))
	}
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	app := fiber.New()
	app.Use(RateLimitMiddleware(rdb, RateLimitConfig{PerMinute: 1}))
	app.Get("/", ok)

	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	}
}

func TestRateLimitMiddlewareDisabled(t *testing.T) {
	app := fiber.New()
	app.Use(RateLimitMiddleware(nil, RateLimitConfig{}))
	app.Get("/", ok)

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestMetricsAuth(t *testing.T) {
	tests := []struct {
		name   string
		secret string
		header string
		want   int
	}{
		{name: "Valid token", secret: "s3cret", header: "Bearer s3cret", want: 200},
		{name: "Lowercase scheme", secret: "s3cret", header: "bearer s3cret", want: 200},
		{name: "Wrong token", secret: "s3cret", header: "Bearer nope", want: 401},
		{name: "Missing header", secret: "s3cret", want: 401},
		{name: "Basic scheme", secret: "s3cret", header: "Basic s3cret", want: 401},
		{name: "No secret configured", header: "Bearer ", want: 401},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/metrics", MetricsAuth(tt.secret), ok)

			req := httptest.NewRequest("GET", "/metrics", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestAnalyticsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())

	app := fiber.New()
	app.Use(AnalyticsMiddleware(m))
	app.Get("/v2/trains/:date/:train", ok)
	app.Get("/boom", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusTeapot, "short and stout")
	})

	for _, path := range []string{"/v2/trains/2026-10-15/45", "/v2/trains/2026-10-16/8", "/boom"} {
		resp, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get("X-Response-Time"))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/v2/trains/:date/:train", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/boom", "418")))
}
