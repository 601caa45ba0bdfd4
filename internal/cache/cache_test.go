package cache_test

import (
	"testing"
	"time"

	"github.com/geocoder89/catalog/internal/cache"
	"github.com/stretchr/testify/assert"
)

func TestCache_Expiry(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := cache.New[string](time.Minute).WithClock(func() time.Time { return now })

	c.Set("a", "1")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	now = now.Add(61 * time.Second)

	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_DeleteAndPrefix(t *testing.T) {
	c := cache.New[int](time.Minute)

	c.Set("products:list:a", 1)
	c.Set("products:list:b", 2)
	c.Set("products:item:1", 3)

	c.DeletePrefix("products:list:")
	assert.Equal(t, 1, c.Len())

	c.Delete("products:item:1")
	_, ok := c.Get("products:item:1")
	assert.False(t, ok)

	c.Set("x", 1)
	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_DefaultTTL(t *testing.T) {
	now := time.Unix(1700000000, 0)
	c := cache.New[int](0).WithClock(func() time.Time { return now })

	c.Set("k", 1)
	now = now.Add(4 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)
}
