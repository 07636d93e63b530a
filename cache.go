package statictiles

import (
	"container/list"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// CacheConfig configures a TileCache.
type CacheConfig struct {
	// BudgetBytes is the soft memory ceiling for cached tile surfaces.
	// Exceeded only when every entry other than the one being allocated or
	// grown is protected (spec §4.2 eviction policy: correctness over
	// eviction).
	BudgetBytes int64
}

// DefaultCacheConfig returns a generous default budget (256 MiB).
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{BudgetBytes: 256 * 1024 * 1024}
}

// CacheStats reports cumulative TileCache activity, supplementing spec §4.2
// with the hit/miss accounting pattern used throughout the example pack
// (grounded on opd-ai-venture's TileCache.Stats/HitRate).
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// HitRate returns the fraction of get/getStale lookups that counted as a hit
// (get: a clean entry; getStale: any entry, dirty or clean), as a value in
// [0,1]. Returns 0 when there have been no lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// TileCache owns every rendered tile surface: allocation, lookup,
// invalidation, and LRU eviction under a memory budget, with a caller-managed
// protected set that eviction must never touch (spec §4.2). Shape grounded
// on opd-ai-venture's pkg/engine TileCache (container/list LRU behind a
// sync.RWMutex); the protected-set carve-out has no analogue there and is
// original to this cache's eviction loop.
type TileCache struct {
	mu sync.RWMutex

	cfg     CacheConfig
	gridCfg GridConfig
	pool    surfacePool

	entries   map[TileKey]*TileEntry
	lru       *list.List // list.Element.Value is TileKey; front = most recent
	protected map[TileKey]struct{}

	totalMemory int64
	clock       uint64

	stats CacheStats
}

// NewTileCache creates an empty TileCache under the given budget. gridCfg
// supplies the band-to-physical-size rule (GridConfig.TilePhysicalSize) the
// cache needs when sizing surfaces on allocate; the cache otherwise holds no
// grid geometry.
func NewTileCache(cfg CacheConfig, gridCfg GridConfig) *TileCache {
	return &TileCache{
		cfg:       cfg,
		gridCfg:   gridCfg,
		entries:   make(map[TileKey]*TileEntry),
		lru:       list.New(),
		protected: make(map[TileKey]struct{}),
	}
}

// tick advances and returns the logical access clock. Logical rather than
// wall-clock so LRU ordering is deterministic under test (see TileEntry.LastAccess).
func (c *TileCache) tick() uint64 {
	c.clock++
	return c.clock
}

// touch moves an entry to the front of the LRU list and stamps its access time.
func (c *TileCache) touch(e *TileEntry) {
	e.LastAccess = c.tick()
	if elem, ok := e.listElem.(*list.Element); ok {
		c.lru.MoveToFront(elem)
	}
}

// allocate reuses the entry at key if present, resizing its surface if band
// changed, or creates a new one, evicting as needed to make room. The
// returned entry is always dirty with a cleared stroke set (spec §4.2).
func (c *TileCache) allocate(key TileKey, worldBounds Rect, band ZoomBand) *TileEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	tilePhysical := c.gridCfg.TilePhysicalSize(band)
	newMemory := memoryBytesFor(tilePhysical)

	if e, ok := c.entries[key]; ok {
		oldMemory := e.MemoryBytes
		needSurface := e.Pixels == nil || e.Pixels.Bounds().Dx() != tilePhysical || e.Pixels.Bounds().Dy() != tilePhysical

		if needSurface {
			c.totalMemory -= oldMemory
			c.makeRoom(newMemory, key)
			if e.Pixels != nil {
				c.pool.Release(e.Pixels)
			}
			e.Pixels = c.pool.Acquire(tilePhysical, tilePhysical)
			e.MemoryBytes = newMemory
			c.totalMemory += newMemory
		}

		e.WorldBounds = worldBounds
		e.Dirty = true
		e.RenderedAtBand = band
		e.StrokeIDs = nil
		c.touch(e)
		return e
	}

	c.makeRoom(newMemory, key)

	e := &TileEntry{
		Key:            key,
		Pixels:         c.pool.Acquire(tilePhysical, tilePhysical),
		WorldBounds:    worldBounds,
		Dirty:          true,
		RenderedAtBand: band,
		MemoryBytes:    newMemory,
	}
	e.LastAccess = c.tick()
	e.listElem = c.lru.PushFront(key)
	c.entries[key] = e
	c.totalMemory += newMemory
	return e
}

// get returns the entry at key only if it is clean, updating its access
// time. Returns (nil, false) for missing or dirty entries.
func (c *TileCache) get(key TileKey) (*TileEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok || e.Dirty {
		c.stats.Misses++
		return nil, false
	}
	c.touch(e)
	c.stats.Hits++
	return e, true
}

// getStale returns the entry at key regardless of dirtiness, updating its
// access time. Used by the compositor, which prefers a blurry stale tile
// over a blank hole (spec §4.4).
func (c *TileCache) getStale(key TileKey) (*TileEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.touch(e)
	c.stats.Hits++
	return e, true
}

// markClean flips dirty to false. No-op if key is absent.
func (c *TileCache) markClean(key TileKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.Dirty = false
	}
}

// invalidate marks the given keys dirty without discarding their pixels:
// a dirty entry keeps compositing until its re-render completes (spec §4.2).
func (c *TileCache) invalidate(keys []TileKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		if e, ok := c.entries[k]; ok {
			e.Dirty = true
		}
	}
}

// invalidateAll marks every entry dirty.
func (c *TileCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		e.Dirty = true
	}
}

// invalidateStroke marks dirty every entry whose StrokeIDs contains id, and
// returns the affected keys.
func (c *TileCache) invalidateStroke(id StrokeID) []TileKey {
	c.mu.Lock()
	defer c.mu.Unlock()

	var affected []TileKey
	for k, e := range c.entries {
		if e.hasStroke(id) {
			e.Dirty = true
			affected = append(affected, k)
		}
	}
	return affected
}

// dirtyTiles returns every dirty entry, with members of visibleKeys ordered
// before non-members, so the orchestrator prioritizes re-rendering what's on
// screen (spec §4.2). Visible members keep the order of visibleKeys; the
// non-members follow in no defined order (map iteration order).
func (c *TileCache) dirtyTiles(visibleKeys []TileKey) []*TileEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	visible := make(map[TileKey]struct{}, len(visibleKeys))
	for _, k := range visibleKeys {
		visible[k] = struct{}{}
	}

	var inView, outOfView []*TileEntry
	for _, k := range visibleKeys {
		if e, ok := c.entries[k]; ok && e.Dirty {
			inView = append(inView, e)
		}
	}
	for k, e := range c.entries {
		if !e.Dirty {
			continue
		}
		if _, ok := visible[k]; ok {
			continue
		}
		outOfView = append(outOfView, e)
	}
	return append(inView, outOfView...)
}

// protect replaces the set of keys eviction must never touch.
func (c *TileCache) protect(keys []TileKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	protected := make(map[TileKey]struct{}, len(keys))
	for _, k := range keys {
		protected[k] = struct{}{}
	}
	c.protected = protected
}

// unprotect empties the protected set.
func (c *TileCache) unprotect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.protected = make(map[TileKey]struct{})
}

// releaseSurface returns a surface to the cache's pool for reuse, for
// callers (the orchestrator) that briefly hold a surface the cache never
// installed into an entry — e.g. one discarded in favor of a worker's
// already-rendered result.
func (c *TileCache) releaseSurface(img *ebiten.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pool.Release(img)
}

// clear destroys every entry and releases its pixel surface.
func (c *TileCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range c.entries {
		if e.Pixels != nil {
			c.pool.Release(e.Pixels)
		}
	}
	c.entries = make(map[TileKey]*TileEntry)
	c.lru.Init()
	c.protected = make(map[TileKey]struct{})
	c.totalMemory = 0
}

// Stats returns a snapshot of cumulative cache activity.
func (c *TileCache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// TotalMemory returns the current exact sum of MemoryBytes across all
// entries (spec invariant I1).
func (c *TileCache) TotalMemory() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalMemory
}

// Size returns the number of entries currently held, clean or dirty (spec
// §6: the core exposes "TileCache statistics: memoryUsage, size").
func (c *TileCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// makeRoom evicts unprotected entries in ascending LastAccess order until
// totalMemory+additional fits the budget, or only protected entries remain
// (spec §4.2: correctness over eviction). exempt is never evicted even if
// unprotected — it is the entry currently being grown, already accounted for
// by the caller's own memory delta.
func (c *TileCache) makeRoom(additional int64, exempt TileKey) {
	for c.totalMemory+additional > c.cfg.BudgetBytes {
		victim := c.lru.Back()
		evicted := false
		for victim != nil {
			key := victim.Value.(TileKey)
			prev := victim.Prev()
			if key == exempt {
				victim = prev
				continue
			}
			if _, isProtected := c.protected[key]; isProtected {
				victim = prev
				continue
			}
			c.evict(key, victim)
			evicted = true
			break
		}
		if !evicted {
			return
		}
	}
}

// evict removes the entry at key from all bookkeeping and releases its
// surface back to the pool. Caller holds the write lock.
func (c *TileCache) evict(key TileKey, elem *list.Element) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	if e.Pixels != nil {
		c.pool.Release(e.Pixels)
	}
	c.totalMemory -= e.MemoryBytes
	delete(c.entries, key)
	c.lru.Remove(elem)
	c.stats.Evictions++
}
