package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLimiter struct {
	counts map[string]int64
	scopes []string
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[scope]++
	c.scopes = append(c.scopes, scope)
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func TestRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := &countingLimiter{}
	handler := RateLimit(limiter, "cart", 2, time.Minute, nil)(okHandler())

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/items", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
		if resp.Code == http.StatusTooManyRequests {
			assert.Equal(t, "60", resp.Header().Get("Retry-After"))
		}
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
	require.NotEmpty(t, limiter.scopes)
	assert.Equal(t, "cart:user-1", limiter.scopes[0])
}

func TestRateLimitIgnoresReads(t *testing.T) {
	limiter := &countingLimiter{}
	handler := RateLimit(limiter, "cart", 1, time.Minute, nil)(okHandler())

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
		require.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Empty(t, limiter.scopes)
}

func TestRateLimitDisabled(t *testing.T) {
	handler := RateLimit(&countingLimiter{}, "cart", 0, time.Minute, nil)(okHandler())
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, resp.Code)
}
