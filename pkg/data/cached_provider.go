package data

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/ducminhle1904/pattern-backtester/pkg/types"
)

// DefaultCacheEntries bounds how many series a MemoryCache keeps
const DefaultCacheEntries = 16

// MemoryCache keeps decoded series in memory and evicts the oldest entry once full.
// It hands out copies so callers may modify what they get.
type MemoryCache struct {
	mu         sync.Mutex
	maxEntries int
	entries    map[string][]types.Candle
	order      []string
	hits       int
	misses     int
}

// NewMemoryCache creates a cache holding at most maxEntries series. A non-positive
// maxEntries uses DefaultCacheEntries.
func NewMemoryCache(maxEntries int) *MemoryCache {
	if maxEntries <= 0 {
		maxEntries = DefaultCacheEntries
	}
	return &MemoryCache{
		maxEntries: maxEntries,
		entries:    make(map[string][]types.Candle),
	}
}

func (c *MemoryCache) Get(key string) ([]types.Candle, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	candles, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	return cloneCandles(candles), true
}

func (c *MemoryCache) Set(key string, candles []types.Candle) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		c.order = append(c.order, key)
	}
	c.entries[key] = cloneCandles(candles)

	for len(c.order) > c.maxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string][]types.Candle)
	c.order = nil
}

func (c *MemoryCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns the hit and miss counts since creation
func (c *MemoryCache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func cloneCandles(candles []types.Candle) []types.Candle {
	out := make([]types.Candle, len(candles))
	copy(out, candles)
	return out
}

// CachedProvider wraps another DataProvider and decodes each file once. Entries are
// keyed by path, size and modification time, so a rewritten file is decoded again.
type CachedProvider struct {
	provider DataProvider
	cache    DataCache
}

func NewCachedProvider(provider DataProvider) *CachedProvider {
	return NewCachedProviderWithCache(provider, NewMemoryCache(DefaultCacheEntries))
}

func NewCachedProviderWithCache(provider DataProvider, cache DataCache) *CachedProvider {
	return &CachedProvider{
		provider: provider,
		cache:    cache,
	}
}

func (p *CachedProvider) GetName() string {
	return "Cached " + p.provider.GetName()
}

// LoadData returns the cached series for source, decoding it on a miss
func (p *CachedProvider) LoadData(source string) ([]types.Candle, error) {
	key := cacheKey(source)
	if candles, ok := p.cache.Get(key); ok {
		return candles, nil
	}

	candles, err := p.provider.LoadData(source)
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, candles)
	log.Printf("💾 Cached %d candles from %s", len(candles), filepath.Base(source))
	return cloneCandles(candles), nil
}

func (p *CachedProvider) ValidateData(data []types.Candle) error {
	return p.provider.ValidateData(data)
}

func (p *CachedProvider) ClearCache() {
	p.cache.Clear()
}

func (p *CachedProvider) GetCacheSize() int {
	return p.cache.Size()
}

// cacheKey fingerprints source. Sources that cannot be stat'ed are keyed by name only.
func cacheKey(source string) string {
	info, err := os.Stat(source)
	if err != nil {
		return source
	}
	return fmt.Sprintf("%s|%d|%d", source, info.Size(), info.ModTime().UnixNano())
}
