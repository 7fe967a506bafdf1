package impact

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/beetlebugorg/reefimpact/internal/geom"
)

func smallClass(t *testing.T, name string, features int) *geom.FeatureClass {
	fc := geom.NewFeatureClass(name, geom.GeometryTypePolygon, "")
	for i := 0; i < features; i++ {
		fc.Append(geom.Feature{Geometry: mustWKT(t, "POLYGON ((0 0, 1 0, 1 1, 0 1, 0 0))")})
	}
	return fc
}

func TestCacheBasic(t *testing.T) {
	cache := NewDatasetCache(1024 * 1024) // 1MB

	stats := cache.Stats()
	if stats.DatasetCount != 0 {
		t.Errorf("Expected empty cache, got %d datasets", stats.DatasetCount)
	}

	loadCount := 0
	fc, err := cache.Get("reefs", func() (*geom.FeatureClass, error) {
		loadCount++
		return smallClass(t, "reefs", 1), nil
	})
	if err != nil {
		t.Fatalf("Failed to load dataset: %v", err)
	}
	if fc.Name != "reefs" {
		t.Errorf("Expected name 'reefs', got '%s'", fc.Name)
	}

	// Cache hit
	fc2, err := cache.Get("reefs", func() (*geom.FeatureClass, error) {
		loadCount++
		return smallClass(t, "other", 1), nil
	})
	if err != nil {
		t.Fatalf("Failed to get cached dataset: %v", err)
	}
	if fc2 != fc {
		t.Error("Expected the cached feature class to be returned")
	}
	if loadCount != 1 {
		t.Errorf("Expected loader called once, got %d times", loadCount)
	}

	stats = cache.Stats()
	if stats.DatasetCount != 1 || stats.TotalAccess != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestCacheEviction(t *testing.T) {
	cache := NewDatasetCache(10 * 1024)

	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("ds%d", i)
		if _, err := cache.Get(name, func() (*geom.FeatureClass, error) {
			return smallClass(t, name, 5), nil
		}); err != nil {
			t.Fatalf("load %s: %v", name, err)
		}
	}

	stats := cache.Stats()
	if stats.UsedMemory > stats.MaxMemory {
		t.Errorf("Used memory %d exceeds max %d", stats.UsedMemory, stats.MaxMemory)
	}
	if stats.DatasetCount >= 10 {
		t.Errorf("Expected evictions, still have %d datasets", stats.DatasetCount)
	}

	// Most recent survives
	loaded := false
	if _, err := cache.Get("ds9", func() (*geom.FeatureClass, error) {
		loaded = true
		return smallClass(t, "ds9", 5), nil
	}); err != nil {
		t.Fatal(err)
	}
	if loaded {
		t.Error("Expected most recent dataset to still be cached")
	}
}

func TestCacheTooLarge(t *testing.T) {
	cache := NewDatasetCache(512)

	fc, err := cache.Get("big", func() (*geom.FeatureClass, error) {
		return smallClass(t, "big", 10), nil
	})
	if err != nil {
		t.Fatalf("Expected dataset returned uncached, got error: %v", err)
	}
	if fc == nil {
		t.Fatal("Expected dataset")
	}
	if cache.Stats().DatasetCount != 0 {
		t.Error("Expected oversized dataset not to be cached")
	}
	if err := cache.Add("big", fc); err == nil {
		t.Error("Expected Add to reject oversized dataset")
	}
}

func TestCacheRemoveAndClear(t *testing.T) {
	cache := NewDatasetCache(0)

	if err := cache.Add("a", smallClass(t, "a", 1)); err != nil {
		t.Fatal(err)
	}
	if err := cache.Add("b", smallClass(t, "b", 1)); err != nil {
		t.Fatal(err)
	}

	cache.Remove("a")
	if got := cache.Stats().DatasetCount; got != 1 {
		t.Errorf("Expected 1 dataset after Remove, got %d", got)
	}

	cache.Clear()
	stats := cache.Stats()
	if stats.DatasetCount != 0 || stats.UsedMemory != 0 {
		t.Errorf("Expected empty cache after Clear, got %+v", stats)
	}
}

func TestCacheLoadError(t *testing.T) {
	cache := NewDatasetCache(0)

	_, err := cache.Get("bad", func() (*geom.FeatureClass, error) {
		return nil, fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("Expected loader error")
	}
	if cache.Stats().DatasetCount != 0 {
		t.Error("Failed loads must not be cached")
	}
}

func TestCacheConcurrentMissesLoadOnce(t *testing.T) {
	cache := NewDatasetCache(0)
	var loads int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	results := make([]*geom.FeatureClass, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fc, err := cache.Get("shared", func() (*geom.FeatureClass, error) {
				atomic.AddInt32(&loads, 1)
				<-release
				return geom.NewFeatureClass("shared", geom.GeometryTypePolygon, ""), nil
			})
			if err != nil {
				t.Errorf("Get: %v", err)
			}
			results[i] = fc
		}(i)
	}

	close(release)
	wg.Wait()

	if n := atomic.LoadInt32(&loads); n != 1 {
		t.Errorf("Expected one load, got %d", n)
	}
	for i, fc := range results {
		if fc != results[0] {
			t.Errorf("Result %d differs from result 0", i)
		}
	}
}
