package treeselect

import (
	"fmt"
	"sync"
	"testing"
)

type fakeProgramCache struct {
	mu     sync.Mutex
	store  map[string]any
	hits   int
	misses int
	sets   int
}

func newFakeProgramCache() *fakeProgramCache {
	return &fakeProgramCache{store: map[string]any{}}
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	value, ok := c.store[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return value, ok
}

func (c *fakeProgramCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.store[key] = value
}

func TestProgramCacheReusesCompiledPrograms(t *testing.T) {
	for _, factory := range evaluatorFactories() {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			cache := newFakeProgramCache()
			settings := resolvedDefaults(t, WithEvaluator(factory.build(cache, nil)))
			for i := 0; i < 3; i++ {
				if _, err := settings.Evaluate("selectionStrategy.limit > 10"); err != nil {
					t.Fatalf("evaluate: %v", err)
				}
			}
			if cache.sets != 1 {
				t.Fatalf("expected one compiled program, got %d", cache.sets)
			}
			if cache.hits != 2 || cache.misses != 1 {
				t.Fatalf("expected 2 hits and 1 miss, got %d/%d", cache.hits, cache.misses)
			}
		})
	}
}

func TestWithProgramCacheFeedsDefaultEvaluator(t *testing.T) {
	cache := NewMemoryProgramCache(4)
	settings := resolvedDefaults(t, WithProgramCache(cache))
	if _, err := settings.Evaluate("logLevel == 1"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected the default evaluator to use the cache, got %d entries", cache.Len())
	}
}

func TestMemoryProgramCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewMemoryProgramCache(2)
	cache.Set("a", 1)
	cache.Set("b", 2)
	if _, ok := cache.Get("a"); !ok {
		t.Fatalf("expected a to be cached")
	}
	cache.Set("c", 3)

	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := cache.Get("a"); !ok || v != 1 {
		t.Fatalf("expected a to survive, got %v (%v)", v, ok)
	}
	if v, ok := cache.Get("c"); !ok || v != 3 {
		t.Fatalf("expected c cached, got %v (%v)", v, ok)
	}
	cache.Set("c", 4)
	if v, _ := cache.Get("c"); v != 4 {
		t.Fatalf("expected c updated, got %v", v)
	}
	if cache.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", cache.Len())
	}
}

func TestMemoryProgramCacheDefaultSize(t *testing.T) {
	cache := NewMemoryProgramCache(0)
	for i := 0; i < DefaultProgramCacheSize+10; i++ {
		cache.Set(fmt.Sprintf("expr:%d", i), i)
	}
	if cache.Len() != DefaultProgramCacheSize {
		t.Fatalf("expected cache bounded at %d, got %d", DefaultProgramCacheSize, cache.Len())
	}
}
