package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRateLimiter_Check(t *testing.T) {
	t.Parallel()

	t.Run("bypassed outside production-like envs", func(t *testing.T) {
		for _, env := range []string{"", "test", "development", "stress"} {
			l := NewRateLimiter(nil, env)
			assert.False(t, l.Enabled(), env)
			allowed, err := l.Check(context.Background(), "login", "ip:1", 1, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
	})

	t.Run("nil redis errors in production", func(t *testing.T) {
		l := NewRateLimiter(nil, "production")
		allowed, err := l.Check(context.Background(), "login", "ip:1", 1, time.Minute)
		assert.Error(t, err)
		assert.False(t, allowed)
	})

	t.Run("counts within window then resets", func(t *testing.T) {
		mr, rdb := newTestRedis(t)
		l := NewRateLimiter(rdb, "production")
		ctx := context.Background()

		for i := 0; i < 2; i++ {
			allowed, err := l.Check(ctx, "vote", "user:1", 2, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed)
		}
		allowed, err := l.Check(ctx, "vote", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)

		// Another identity has its own budget.
		allowed, err = l.Check(ctx, "vote", "user:2", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)

		assert.True(t, mr.Exists("rl:vote:user:1"))
		mr.FastForward(time.Minute + time.Second)
		allowed, err = l.Check(ctx, "vote", "user:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimiter_Middleware(t *testing.T) {
	t.Parallel()

	ok := func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) }
	hit := func(t *testing.T, app *fiber.App) *http.Response {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/test", nil))
		require.NoError(t, err)
		t.Cleanup(func() { _ = resp.Body.Close() })
		return resp
	}

	t.Run("bypass in test mode", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewRateLimiter(nil, "test").Limit(1, time.Minute, "x"), ok)
		assert.Equal(t, http.StatusOK, hit(t, app).StatusCode)
		assert.Equal(t, http.StatusOK, hit(t, app).StatusCode)
	})

	t.Run("fail open with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewRateLimiter(nil, "production").Limit(1, time.Minute, "x"), ok)
		assert.Equal(t, http.StatusOK, hit(t, app).StatusCode)
	})

	t.Run("fail closed with nil redis", func(t *testing.T) {
		app := fiber.New()
		app.Get("/test", NewRateLimiter(nil, "production").LimitWithPolicy(1, time.Minute, FailClosed, "x"), ok)
		assert.Equal(t, http.StatusServiceUnavailable, hit(t, app).StatusCode)
	})

	t.Run("429 once the budget is spent", func(t *testing.T) {
		_, rdb := newTestRedis(t)
		app := fiber.New()
		app.Get("/test", NewRateLimiter(rdb, "production").Limit(1, time.Minute, "create_post"), ok)

		assert.Equal(t, http.StatusOK, hit(t, app).StatusCode)
		resp := hit(t, app)
		assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
		assert.Equal(t, "60", resp.Header.Get("Retry-After"))
	})
}
