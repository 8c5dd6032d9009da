package data

import (
	"context"
	"sync"

	"backtester/pkg/types"
)

// MemoryCache implements Cache using in-memory storage.
type MemoryCache struct {
	cache map[string][]types.OHLCV
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		cache: make(map[string][]types.OHLCV),
	}
}

// Get retrieves data from cache if available. The returned slice is a copy.
func (c *MemoryCache) Get(key string) ([]types.OHLCV, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	data, exists := c.cache[key]
	if !exists {
		return nil, false
	}
	result := make([]types.OHLCV, len(data))
	copy(result, data)
	return result, true
}

// Set stores a copy of data in the cache.
func (c *MemoryCache) Set(key string, data []types.OHLCV) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	cached := make([]types.OHLCV, len(data))
	copy(cached, data)
	c.cache[key] = cached
}

// Clear removes all cached entries.
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.cache = make(map[string][]types.OHLCV)
}

// Size returns the number of cached entries.
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// CachedProvider wraps a Provider with a cache so repeated loads of the same
// source (optimizer runs, multi-strategy batches) hit the file or API once.
type CachedProvider struct {
	inner Provider
	cache Cache
}

// NewCachedProvider wraps the provider with an in-memory cache.
func NewCachedProvider(inner Provider) *CachedProvider {
	return &CachedProvider{
		inner: inner,
		cache: NewMemoryCache(),
	}
}

// GetName returns the name of the underlying provider.
func (p *CachedProvider) GetName() string {
	return p.inner.GetName() + " (cached)"
}

// LoadData returns the cached series when present, loading it otherwise.
func (p *CachedProvider) LoadData(ctx context.Context, source string) ([]types.OHLCV, error) {
	if data, ok := p.cache.Get(source); ok {
		return data, nil
	}
	data, err := p.inner.LoadData(ctx, source)
	if err != nil {
		return nil, err
	}
	p.cache.Set(source, data)
	return data, nil
}

// ValidateData delegates to the underlying provider.
func (p *CachedProvider) ValidateData(data []types.OHLCV) error {
	return p.inner.ValidateData(data)
}
