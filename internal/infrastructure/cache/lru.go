package cache

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TTLCache is a bounded, time-limited LRU cache safe for concurrent use
type TTLCache[K comparable, V any] struct {
	lru *expirable.LRU[K, V]
}

// NewTTLCache creates a cache holding at most size entries, each for at most ttl
func NewTTLCache[K comparable, V any](size int, ttl time.Duration) *TTLCache[K, V] {
	if size <= 0 {
		size = 500
	}
	return &TTLCache[K, V]{lru: expirable.NewLRU[K, V](size, nil, ttl)}
}

// Get returns the cached value and refreshes its recency
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	return c.lru.Get(key)
}

// Add stores a value, evicting the least recently used entry when full
func (c *TTLCache[K, V]) Add(key K, value V) {
	c.lru.Add(key, value)
}

// Len returns the number of live entries
func (c *TTLCache[K, V]) Len() int {
	return c.lru.Len()
}

// Purge drops every entry
func (c *TTLCache[K, V]) Purge() {
	c.lru.Purge()
}
