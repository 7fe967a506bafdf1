package impact

import (
	"container/list"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/beetlebugorg/reefimpact/internal/dataset"
	"github.com/beetlebugorg/reefimpact/internal/geom"
)

// DatasetCache keeps decoded datasets in memory with LRU eviction.
//
// Batch runs usually share one target dataset; the cache decodes it once
// and hands the same feature class to every run. Cached classes must be
// treated as read-only.
//
// Memory use is estimated from the WKB size of each geometry plus a fixed
// per-feature overhead.
//
// Example:
//
//	cache := impact.NewDatasetCache(256 * 1024 * 1024)
//	reefs, err := cache.Load("data/reefs.geojson")
type DatasetCache struct {
	maxMemory  int64 // Maximum memory in bytes, 0 for unlimited
	usedMemory int64
	entries    map[string]*cacheEntry
	lru        *list.List // Most recent at front
	mu         sync.Mutex
	loading    map[string]*loadCall
}

// cacheEntry tracks a cached dataset and its metadata
type cacheEntry struct {
	key          string
	fc           *geom.FeatureClass
	memorySize   int64
	element      *list.Element
	lastAccessed time.Time
	accessCount  int
}

// loadCall lets concurrent callers for the same key wait on one load.
type loadCall struct {
	done chan struct{}
	fc   *geom.FeatureClass
	err  error
}

// NewDatasetCache creates a cache with the given memory limit in bytes.
// A limit of 0 disables eviction.
func NewDatasetCache(maxMemoryBytes int64) *DatasetCache {
	return &DatasetCache{
		maxMemory: maxMemoryBytes,
		entries:   make(map[string]*cacheEntry),
		lru:       list.New(),
		loading:   make(map[string]*loadCall),
	}
}

// Load returns the dataset at path, decoding it on a cache miss.
func (c *DatasetCache) Load(path string) (*geom.FeatureClass, error) {
	key := filepath.Clean(path)
	if abs, err := filepath.Abs(key); err == nil {
		key = abs
	}
	return c.Get(key, func() (*geom.FeatureClass, error) {
		return dataset.Load(path)
	})
}

// Get retrieves a dataset from the cache or loads it with loader.
//
// Concurrent misses on the same key share a single loader call. A dataset
// larger than the memory limit is returned but not cached.
func (c *DatasetCache) Get(key string, loader func() (*geom.FeatureClass, error)) (*geom.FeatureClass, error) {
	c.mu.Lock()
	if entry, ok := c.entries[key]; ok {
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.lru.MoveToFront(entry.element)
		c.mu.Unlock()
		return entry.fc, nil
	}
	if call, ok := c.loading[key]; ok {
		c.mu.Unlock()
		<-call.done

		c.mu.Lock()
		if entry, ok := c.entries[key]; ok {
			entry.accessCount++
		}
		c.mu.Unlock()
		return call.fc, call.err
	}
	call := &loadCall{done: make(chan struct{})}
	c.loading[key] = call
	c.mu.Unlock()

	fc, err := loader()
	if err != nil {
		err = fmt.Errorf("load dataset: %w", err)
	}
	call.fc, call.err = fc, err

	c.mu.Lock()
	delete(c.loading, key)
	if err == nil {
		// Too large to cache; the caller still gets the dataset
		_ = c.addLocked(key, fc)
	}
	c.mu.Unlock()
	close(call.done)

	return fc, err
}

// Add adds a dataset to the cache, evicting least-recently-used entries
// to make room.
func (c *DatasetCache) Add(key string, fc *geom.FeatureClass) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addLocked(key, fc)
}

func (c *DatasetCache) addLocked(key string, fc *geom.FeatureClass) error {
	if entry, ok := c.entries[key]; ok {
		c.usedMemory -= entry.memorySize
		entry.fc = fc
		entry.memorySize = estimateMemory(fc)
		entry.lastAccessed = time.Now()
		entry.accessCount++
		c.usedMemory += entry.memorySize
		c.lru.MoveToFront(entry.element)
		return nil
	}

	memSize := estimateMemory(fc)
	if c.maxMemory > 0 && memSize > c.maxMemory {
		return fmt.Errorf("dataset too large for cache (%d bytes > %d bytes max)",
			memSize, c.maxMemory)
	}

	if c.maxMemory > 0 {
		for c.usedMemory+memSize > c.maxMemory && c.lru.Len() > 0 {
			c.evictLRU()
		}
	}

	entry := &cacheEntry{
		key:          key,
		fc:           fc,
		memorySize:   memSize,
		lastAccessed: time.Now(),
		accessCount:  1,
	}
	entry.element = c.lru.PushFront(entry)
	c.entries[key] = entry
	c.usedMemory += memSize

	return nil
}

// evictLRU removes the least recently used dataset.
// Must be called with c.mu locked.
func (c *DatasetCache) evictLRU() {
	elem := c.lru.Back()
	if elem == nil {
		return
	}

	entry := elem.Value.(*cacheEntry)
	c.lru.Remove(elem)
	delete(c.entries, entry.key)
	c.usedMemory -= entry.memorySize
}

// Remove drops a dataset from the cache.
func (c *DatasetCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		c.lru.Remove(entry.element)
		delete(c.entries, key)
		c.usedMemory -= entry.memorySize
	}
}

// Clear removes all datasets from the cache.
func (c *DatasetCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*cacheEntry)
	c.lru.Init()
	c.usedMemory = 0
}

// Stats returns cache statistics.
func (c *DatasetCache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalAccess := 0
	for _, entry := range c.entries {
		totalAccess += entry.accessCount
	}

	return CacheStats{
		DatasetCount: len(c.entries),
		UsedMemory:   c.usedMemory,
		MaxMemory:    c.maxMemory,
		TotalAccess:  totalAccess,
	}
}

// CacheStats holds cache metrics.
type CacheStats struct {
	DatasetCount int   // Datasets currently cached
	UsedMemory   int64 // Estimated memory usage in bytes
	MaxMemory    int64 // Memory limit in bytes
	TotalAccess  int   // Accesses across all cached datasets
}

// estimateMemory approximates the memory held by a feature class:
// 1KB base, 512 bytes per feature, 64 bytes per attribute and the WKB
// size of each geometry.
func estimateMemory(fc *geom.FeatureClass) int64 {
	if fc == nil {
		return 0
	}

	size := int64(1024)
	for _, f := range fc.Features {
		size += 512 + int64(len(f.Attributes))*64
		if f.Geometry != nil && !f.Geometry.IsEmpty() {
			size += int64(len(f.Geometry.ToWKB()))
		}
	}
	return size
}
