package ratelimit_test

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doruhan/vira/pkg/ratelimit"
)

func TestAllowWithinLimit(t *testing.T) {
	limiter := ratelimit.New(3, time.Minute)
	defer limiter.Close()

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("1.2.3.4"), "istek %d limitin içinde", i+1)
	}
	assert.False(t, limiter.Allow("1.2.3.4"))

	// Farklı IP kendi bucket'ını kullanır.
	assert.True(t, limiter.Allow("5.6.7.8"))
}

func TestWindowReset(t *testing.T) {
	limiter := ratelimit.New(1, 30*time.Millisecond)
	defer limiter.Close()

	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))

	time.Sleep(50 * time.Millisecond)

	// Pencere kapandı — sayaç kendiliğinden sıfırlanır.
	assert.True(t, limiter.Allow("1.2.3.4"))
}

func TestReset(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	defer limiter.Close()

	assert.True(t, limiter.Allow("1.2.3.4"))
	assert.False(t, limiter.Allow("1.2.3.4"))

	limiter.Reset("1.2.3.4")
	assert.True(t, limiter.Allow("1.2.3.4"))
}

func TestRetryAfterSeconds(t *testing.T) {
	limiter := ratelimit.New(1, time.Minute)
	defer limiter.Close()

	assert.Equal(t, 0, limiter.RetryAfterSeconds("1.2.3.4"))

	limiter.Allow("1.2.3.4")
	retry := limiter.RetryAfterSeconds("1.2.3.4")
	assert.Greater(t, retry, 0)
	assert.LessOrEqual(t, retry, 61)
}

func TestExtractIP(t *testing.T) {
	// X-Forwarded-For önceliklidir; listedeki ilk IP client'tır.
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 172.16.0.1")
	assert.Equal(t, "10.0.0.1", ratelimit.ExtractIP(r))

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", ratelimit.ExtractIP(r))

	// Header yoksa RemoteAddr'ın host kısmı kullanılır.
	r = httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.168.1.5:54321"
	assert.Equal(t, "192.168.1.5", ratelimit.ExtractIP(r))
}
