package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doruhan/vira/pkg/cache"
)

func TestSetAndGet(t *testing.T) {
	c := cache.New[string, string](time.Minute, time.Minute)
	defer c.Close()

	_, ok := c.Get("u1")
	assert.False(t, ok)

	c.Set("u1", "deniz")
	name, ok := c.Get("u1")
	require.True(t, ok)
	assert.Equal(t, "deniz", name)
	assert.Equal(t, 1, c.Len())
}

func TestExpiration(t *testing.T) {
	c := cache.New[string, int](20*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("k", 42)
	time.Sleep(40 * time.Millisecond)

	// TTL doldu — temizlik döngüsünü beklemeden Get miss döner.
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestOverwriteRenewsTTL(t *testing.T) {
	c := cache.New[string, string](50*time.Millisecond, time.Minute)
	defer c.Close()

	c.Set("k", "eski")
	time.Sleep(30 * time.Millisecond)
	c.Set("k", "yeni")
	time.Sleep(30 * time.Millisecond)

	// İlk yazımın TTL'i dolmuş olurdu; overwrite süreyi tazeledi.
	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "yeni", v)
}

func TestDeleteAndClear(t *testing.T) {
	c := cache.New[string, string](time.Minute, time.Minute)
	defer c.Close()

	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
