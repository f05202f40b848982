package strava

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterDefaults(t *testing.T) {
	r := NewRateLimiter()
	short, daily := r.Status()
	assert.Equal(t, 100, short)
	assert.Equal(t, 1000, daily)
}

func TestRateLimiterWaitCountsUsage(t *testing.T) {
	r := NewRateLimiter()
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Wait(context.Background()))
	}
	short, daily := r.Status()
	assert.Equal(t, 97, short)
	assert.Equal(t, 997, daily)
}

func TestRateLimiterUpdateFromHeaders(t *testing.T) {
	r := NewRateLimiter()

	h := http.Header{}
	h.Set("X-RateLimit-Limit", "100,1000")
	h.Set("X-RateLimit-Usage", "34,512")
	r.UpdateFromHeaders(h)

	short, daily := r.Status()
	assert.Equal(t, 66, short)
	assert.Equal(t, 488, daily)

	// Headers with whitespace still parse.
	h.Set("X-RateLimit-Usage", " 90 , 900 ")
	r.UpdateFromHeaders(h)
	short, daily = r.Status()
	assert.Equal(t, 10, short)
	assert.Equal(t, 100, daily)
}

func TestRateLimiterIgnoresMalformedHeaders(t *testing.T) {
	r := NewRateLimiter()

	h := http.Header{}
	h.Set("X-RateLimit-Usage", "garbage")
	h.Set("X-RateLimit-Limit", "42")
	r.UpdateFromHeaders(h)

	short, daily := r.Status()
	assert.Equal(t, 100, short)
	assert.Equal(t, 1000, daily)
}

func TestParsePair(t *testing.T) {
	first, second, ok := parsePair("100,1000")
	require.True(t, ok)
	assert.Equal(t, 100, first)
	assert.Equal(t, 1000, second)

	_, _, ok = parsePair("100")
	assert.False(t, ok)

	_, _, ok = parsePair("a,b")
	assert.False(t, ok)
}
