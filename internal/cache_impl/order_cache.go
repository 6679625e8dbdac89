package cache_impl

import (
	"github.com/quickbite/order_fulfillment/pkg/logger"
)

type CacheI[K comparable, V any] interface {
	Get(key K) (value V, ok bool)
	Add(key K, value V) (evicted bool)
}

type Cache[K comparable, V any] struct {
	cache CacheI[K, V]
	log   logger.Logger
}

func NewCache[K comparable, V any](cache CacheI[K, V], log logger.Logger) *Cache[K, V] {
	return &Cache[K, V]{
		cache: cache,
		log:   log,
	}
}

func (c *Cache[K, V]) Add(key K, value V) (evicted bool) {
	return c.cache.Add(key, value)
}

func (c *Cache[K, V]) Get(key K) (value V, ok bool) {
	return c.cache.Get(key)
}
