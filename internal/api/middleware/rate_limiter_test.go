package middleware

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedApp(rl *RateLimiter) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(discardLogger()),
	})
	app.Use(rl.Handler())
	app.Post("/authenticate", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	return app
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows requests within limit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{Max: 5, Window: time.Minute})
		defer rl.Stop()
		app := newLimitedApp(rl)

		for i := 0; i < 5; i++ {
			resp, err := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
			require.NoError(t, err)
			assert.Equal(t, 200, resp.StatusCode)

			body, _ := io.ReadAll(resp.Body)
			assert.Equal(t, "OK", string(body))
		}
	})

	t.Run("blocks requests over limit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{Max: 2, Window: time.Minute})
		defer rl.Stop()
		app := newLimitedApp(rl)

		for i := 0; i < 2; i++ {
			resp, _ := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}

		resp, err := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
		require.NoError(t, err)
		assert.Equal(t, 429, resp.StatusCode)
		assert.Equal(t, "0", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("Retry-After"))

		body, _ := io.ReadAll(resp.Body)
		assert.Contains(t, string(body), "RATE_LIMIT_EXCEEDED")
	})

	t.Run("sets rate limit headers", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{Max: 10, Window: time.Minute})
		defer rl.Stop()
		app := newLimitedApp(rl)

		resp, err := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
		require.NoError(t, err)

		assert.Equal(t, "10", resp.Header.Get("X-RateLimit-Limit"))
		assert.Equal(t, "9", resp.Header.Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Reset"))
	})

	t.Run("separate limits per client", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			Max:    1,
			Window: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.Get("X-Client")
			},
		})
		defer rl.Stop()
		app := newLimitedApp(rl)

		for _, client := range []string{"a", "b"} {
			req := httptest.NewRequest("POST", "/authenticate", nil)
			req.Header.Set("X-Client", client)
			resp, _ := app.Test(req)
			assert.Equal(t, 200, resp.StatusCode, client)
		}

		req := httptest.NewRequest("POST", "/authenticate", nil)
		req.Header.Set("X-Client", "a")
		resp, _ := app.Test(req)
		assert.Equal(t, 429, resp.StatusCode)
	})

	t.Run("empty key bypasses limit", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{
			Max:          1,
			Window:       time.Minute,
			KeyGenerator: func(*fiber.Ctx) string { return "" },
		})
		defer rl.Stop()
		app := newLimitedApp(rl)

		for i := 0; i < 3; i++ {
			resp, _ := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
			assert.Equal(t, 200, resp.StatusCode)
		}
	})

	t.Run("window resets", func(t *testing.T) {
		rl := NewRateLimiter(RateLimiterConfig{Max: 1, Window: 50 * time.Millisecond})
		defer rl.Stop()
		app := newLimitedApp(rl)

		resp, _ := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
		assert.Equal(t, 200, resp.StatusCode)
		resp, _ = app.Test(httptest.NewRequest("POST", "/authenticate", nil))
		assert.Equal(t, 429, resp.StatusCode)

		time.Sleep(80 * time.Millisecond)

		resp, _ = app.Test(httptest.NewRequest("POST", "/authenticate", nil))
		assert.Equal(t, 200, resp.StatusCode)
	})
}

func TestRateLimiter_Evict(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Max: 5, Window: time.Second})
	defer rl.Stop()
	app := newLimitedApp(rl)

	_, err := app.Test(httptest.NewRequest("POST", "/authenticate", nil))
	require.NoError(t, err)
	assert.Equal(t, 1, rl.tracked())

	rl.evict(time.Now())
	assert.Equal(t, 1, rl.tracked())

	rl.evict(time.Now().Add(3 * time.Second))
	assert.Equal(t, 0, rl.tracked())
}

func TestDefaultRateLimiterConfig(t *testing.T) {
	config := DefaultRateLimiterConfig()

	assert.Equal(t, 60, config.Max)
	assert.Equal(t, time.Minute, config.Window)
	assert.NotNil(t, config.KeyGenerator)
}

func TestRateLimiter_Stop(t *testing.T) {
	rl := NewRateLimiter(DefaultRateLimiterConfig())

	assert.NotPanics(t, func() {
		rl.Stop()
		rl.Stop()
	})
}
