package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLCache_GetAdd(t *testing.T) {
	c := NewTTLCache[string, int](2, time.Minute)

	c.Add("a", 1)
	c.Add("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used
	c.Add("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)

	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestTTLCache_Expires(t *testing.T) {
	c := NewTTLCache[string, string](10, 20*time.Millisecond)
	c.Add("k", "v")

	assert.Eventually(t, func() bool {
		_, ok := c.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTTLCache_Purge(t *testing.T) {
	c := NewTTLCache[int, int](0, time.Minute)
	c.Add(1, 1)
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
