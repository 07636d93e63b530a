package statictiles

import (
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// LayerConfig bundles the grid/cache configuration a TiledStaticLayer needs
// at construction, mirroring scene.go's RunConfig (spec.md §10).
type LayerConfig struct {
	Grid  GridConfig
	Cache CacheConfig
}

// DefaultLayerConfig returns the configuration used by spec.md's worked
// scenarios.
func DefaultLayerConfig() LayerConfig {
	return LayerConfig{Grid: DefaultGridConfig(), Cache: DefaultCacheConfig()}
}

// TiledStaticLayer is the orchestrator wiring TileGrid, TileCache,
// TileRenderer, TileCompositor, and a TileScheduler together behind four
// authoritative methods and two invalidation methods (spec §4.6). A single
// orchestrator goroutine (the host's UI/frame thread) is expected to own it.
// Every method takes the layer's mutex, because the worker scheduler
// delivers completed results from its own goroutine.
type TiledStaticLayer struct {
	mu sync.Mutex

	grid       *TileGrid
	cache      *TileCache
	renderer   *TileRenderer
	compositor *TileCompositor
	scheduler  TileScheduler
	fallback   *fallbackScheduler // non-nil iff the worker pool could not be used

	cam CameraView

	docVersion uint64
	doc        *Document
	layout     PageLayout
	index      SpatialIndex
	isDark     bool

	// resources is the host's opaque grain/stamp texture bundle, replicated
	// to workers via RenderSnapshot (spec §5). resourceVersion tracks it
	// independently of docVersion since resources change far less often
	// than the document ("transferred once, retransferred on user-initiated
	// changes" — spec §5).
	resources       any
	resourceVersion uint64

	currentBand ZoomBand

	gestureActive bool
	gestureW      float64
	gestureH      float64

	needsComposite bool
}

// NewTiledStaticLayer constructs a layer over cam, preferring a worker-pool
// scheduler and falling back to the cooperative form if worker creation
// fails (spec §4.5's "or ... a cooperative ... fallback"; this core's worker
// creation is in-process goroutine spawning, which in practice never fails,
// but the seam is kept so a host embedding this core in a more constrained
// runtime — e.g. a WASM build with no goroutine scheduling headroom — has a
// place to force the fallback).
func NewTiledStaticLayer(cfg LayerConfig, cam CameraView, strokeRenderer StrokeRenderer) *TiledStaticLayer {
	grid := NewTileGrid(cfg.Grid)
	cache := NewTileCache(cfg.Cache, cfg.Grid)
	renderer := NewTileRenderer(strokeRenderer)
	compositor := NewTileCompositor(grid)

	l := &TiledStaticLayer{
		grid:       grid,
		cache:      cache,
		renderer:   renderer,
		compositor: compositor,
		cam:        cam,
	}

	if sched, ok := newWorkerSchedulerSafe(renderer, cfg.Grid, l.onSchedulerBatchComplete); ok {
		l.scheduler = sched
	} else {
		logf("worker scheduler unavailable, using cooperative fallback: %v", ErrWorkersUnavailable)
		fb := NewFallbackScheduler(renderer, cfg.Grid, l.onSchedulerBatchComplete)
		l.scheduler = fb
		l.fallback = fb
	}

	return l
}

// newWorkerSchedulerSafe always succeeds in this implementation (worker
// creation is plain goroutine spawning) but is factored out as a named seam
// matching the constructor's documented fallback path.
func newWorkerSchedulerSafe(renderer *TileRenderer, gridCfg GridConfig, onBatchComplete BatchCompleteFunc) (*workerScheduler, bool) {
	return NewWorkerScheduler(renderer, gridCfg, onBatchComplete), true
}

// Tick drives the cooperative fallback scheduler, if in use. The host must
// call this once per frame; it is a no-op when the worker-pool form is
// active.
func (l *TiledStaticLayer) Tick() {
	l.mu.Lock()
	fb := l.fallback
	l.mu.Unlock()
	if fb != nil {
		fb.Tick()
	}
}

// RenderVisible is the authoritative call for load/undo/redo (spec §4.6).
func (l *TiledStaticLayer) RenderVisible(doc *Document, layout PageLayout, index SpatialIndex, isDark bool, screenW, screenH float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.docVersion++
	l.doc, l.layout, l.index, l.isDark = doc, layout, index, isDark
	l.scheduler.Cancel()

	band := zoomToZoomBand(l.cam.ZoomLevel())
	l.currentBand = band
	visible := l.grid.VisibleTiles(l.cam, screenW, screenH)
	visibleSet := keySet(visible)
	l.cache.protect(visible)

	snapshot := &RenderSnapshot{
		Doc: doc, Layout: layout, IsDark: isDark, DocVersion: l.docVersion,
		Resources: l.resources, ResourceVersion: l.resourceVersion,
	}

	// Synchronous pass: fill blank holes inline so nothing ever draws empty.
	for _, key := range visible {
		if _, ok := l.cache.getStale(key); ok {
			continue
		}
		l.renderInline(key, band)
	}

	// Asynchronous queue: visible-but-wrong/dirty tiles, plus any dirty
	// tile outside the visible set (spec §4.6 step 5).
	async := l.dirtyOrWrongBand(visible, visibleSet, band)
	l.scheduler.Schedule(async, visibleSet, index, l.grid, band, snapshot)

	l.needsComposite = true
}

// BakeStroke is the authoritative call when a new stroke is finalized (spec
// §4.6).
func (l *TiledStaticLayer) BakeStroke(stroke Stroke, doc *Document, layout PageLayout, index SpatialIndex, isDark bool, screenW, screenH float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.docVersion++
	l.doc, l.layout, l.index, l.isDark = doc, layout, index, isDark

	band := l.currentBand
	visible := l.grid.VisibleTiles(l.cam, screenW, screenH)
	l.cache.protect(visible)

	for _, key := range l.grid.TilesForWorldBBox(stroke.Bounds) {
		l.renderInline(key, band)
	}

	l.cache.unprotect()

	// Any job already in flight for a worker carries its own RenderSnapshot
	// captured at dispatch time, so there is no live reference to "push" a
	// newer snapshot into (spec §5: workers use their local copy). The
	// version bump above is what matters: a result that lands afterward
	// is checked against l.docVersion in onSchedulerBatchComplete and
	// dropped if it belongs to a superseded document state.
	l.needsComposite = true
}

// GestureUpdate composites whatever is cached — including stale, wrong-band
// pixels — and schedules only the tiles missing at every resolution (spec
// §4.6). It is meant to be called every frame of an in-progress pan/zoom.
func (l *TiledStaticLayer) GestureUpdate(surface *ebiten.Image, screenW, screenH float64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.gestureActive = true
	l.gestureW, l.gestureH = screenW, screenH

	l.compositor.Composite(surface, l.cam, screenW, screenH, l.cache)

	visible := l.grid.VisibleTiles(l.cam, screenW, screenH)
	visibleSet := keySet(visible)
	l.cache.protect(visible)

	band := zoomToZoomBand(l.cam.ZoomLevel())
	l.currentBand = band

	var missing []TileKey
	for _, key := range visible {
		if _, ok := l.cache.getStale(key); !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) == 0 || l.doc == nil {
		return
	}
	snapshot := &RenderSnapshot{
		Doc: l.doc, Layout: l.layout, IsDark: l.isDark, DocVersion: l.docVersion,
		Resources: l.resources, ResourceVersion: l.resourceVersion,
	}
	l.scheduler.Schedule(missing, visibleSet, l.index, l.grid, band, snapshot)
}

// EndGesture ends gesture mode: cancels in-flight scheduler work and lifts
// protection. The host is expected to follow with RenderVisible (spec §4.6).
func (l *TiledStaticLayer) EndGesture() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gestureActive = false
	l.scheduler.Cancel()
	l.cache.unprotect()
}

// InvalidateStroke marks every tile touched by strokeID dirty, returning the
// affected keys. No immediate re-render happens; the next authoritative call
// handles it (spec §4.6).
func (l *TiledStaticLayer) InvalidateStroke(strokeID StrokeID) []TileKey {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := l.cache.invalidateStroke(strokeID)
	if Debug && len(keys) > 0 {
		logf("invalidateStroke(%d) marked %d tile(s) dirty", strokeID, len(keys))
	}
	return keys
}

// InvalidateAll marks every entry dirty. Per spec.md's open-question
// decision, this does not cancel in-flight scheduler work: a result that
// lands afterward is still applied, because the version counter and
// dispatched-band tag are what the result-handling path actually checks for
// staleness, not whether invalidation happened in between (spec §4.6, "Open
// Questions").
func (l *TiledStaticLayer) InvalidateAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache.invalidateAll()
}

// UpdateResources replaces the grain/stamp texture bundle forwarded to the
// stroke renderer and bumps resourceVersion, so the next authoritative call's
// RenderSnapshot carries the new bundle to every worker (spec §5: "grain/
// stamp texture resources are transferred to workers once, and retransferred
// on user-initiated changes"). It does not itself trigger a re-render; a
// host that wants existing tiles redrawn with the new resources should
// follow with InvalidateAll (or a targeted InvalidateStroke) and a
// RenderVisible call.
func (l *TiledStaticLayer) UpdateResources(resources any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.resources = resources
	l.resourceVersion++
	debugLog("resources updated, version=%d", l.resourceVersion)
}

// Destroy tears down the scheduler (and its worker pool, if any).
func (l *TiledStaticLayer) Destroy() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.scheduler.Destroy()
	l.cache.clear()
}

// Composite draws the current frame outside of gesture mode. RenderVisible
// and BakeStroke take no surface and do not draw; they only request a
// redraw (see NeedsComposite), and the host calls Composite to draw it.
// GestureUpdate is the only method that composites internally.
func (l *TiledStaticLayer) Composite(surface *ebiten.Image, screenW, screenH float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.compositor.Composite(surface, l.cam, screenW, screenH, l.cache)
	l.needsComposite = false
}

// NeedsComposite reports whether a redraw has been requested since the last
// Composite call — by RenderVisible, by BakeStroke, or by a scheduler batch
// that completed outside gesture mode — and should happen on the next frame.
func (l *TiledStaticLayer) NeedsComposite() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.needsComposite
}

// LayerStats aggregates cache instrumentation for host-side HUDs; it carries
// no scheduler statistics (spec.md §13 supplemented features; analogous to fps.go's FPSWidget
// data without any UI of its own).
type LayerStats struct {
	Cache       CacheStats
	CacheSize   int
	MemoryUsage int64
}

// Stats returns a snapshot of the layer's current instrumentation.
func (l *TiledStaticLayer) Stats() LayerStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	stats := l.cache.Stats()
	size := l.cache.Size()
	memory := l.cache.TotalMemory()
	logCacheStats(stats, memory)
	return LayerStats{Cache: stats, CacheSize: size, MemoryUsage: memory}
}

// Size returns the number of tiles currently held in the cache, clean or
// dirty (spec §6).
func (l *TiledStaticLayer) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Size()
}

// onSchedulerBatchComplete is invoked off the orchestrator goroutine (from
// the worker scheduler's collector, or synchronously from the fallback
// scheduler's Tick) with the tiles that finished rendering since the last
// call. It must not composite while a gesture is active — doing so would
// draw newly-arrived tiles against a stale camera snapshot and cause edge
// flicker; the next GestureUpdate supplies the correct camera (spec §4.6,
// "Invariant interaction").
func (l *TiledStaticLayer) onSchedulerBatchComplete(batch []renderResult) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, r := range batch {
		if r.Cancelled || r.DocVersion != l.docVersion {
			// Stale result: release its buffer rather than applying it
			// (spec §5, "Resource lifetimes").
			if r.Pixels != nil {
				l.cache.releaseSurface(r.Pixels)
			}
			continue
		}
		l.applyResult(r)
	}

	if !l.gestureActive {
		l.needsComposite = true
	}
}

// applyResult moves a completed render result's pixels into the matching
// cache entry, re-allocating it first if the dispatched band no longer
// matches what's cached (spec §4.5 step 2-3).
func (l *TiledStaticLayer) applyResult(r renderResult) {
	entry, ok := l.cache.getStale(r.Key)
	if !ok || entry.RenderedAtBand != r.Band {
		bounds := l.grid.TileBounds(r.Key)
		entry = l.cache.allocate(r.Key, bounds, r.Band)
	}
	// Whatever surface the entry held (freshly pool-acquired by allocate,
	// or simply the previous render's pixels) is superseded by the
	// worker's already-rendered result; return it to the pool instead of
	// leaking it.
	if entry.Pixels != nil && entry.Pixels != r.Pixels {
		l.cache.releaseSurface(entry.Pixels)
	}
	entry.Pixels = r.Pixels
	entry.StrokeIDs = r.StrokeIDs
	entry.RenderedAtBand = r.Band
	l.cache.markClean(r.Key)
}

// renderInline synchronously allocates (or re-allocates, if the band
// changed) and renders one tile, used by both RenderVisible's blank-hole
// pass and BakeStroke's full re-render of touched tiles.
func (l *TiledStaticLayer) renderInline(key TileKey, band ZoomBand) {
	bounds := l.grid.TileBounds(key)
	entry, ok := l.cache.getStale(key)
	if !ok || entry.RenderedAtBand != band || entry.Pixels == nil {
		entry = l.cache.allocate(key, bounds, band)
	}
	l.renderer.RenderTile(entry, l.doc, l.layout, l.index, band, l.grid.Config().TileWorldSize, l.isDark, l.resources)
	l.cache.markClean(key)
}

// dirtyOrWrongBand collects the tiles RenderVisible's asynchronous pass must
// schedule: visible tiles that are dirty or rendered at the wrong band (and
// already present, so not handled by the synchronous blank-hole pass), plus
// any dirty entry outside the visible set (spec §4.6 step 5).
func (l *TiledStaticLayer) dirtyOrWrongBand(visible []TileKey, visibleSet map[TileKey]bool, band ZoomBand) []TileKey {
	var out []TileKey
	for _, key := range visible {
		entry, ok := l.cache.getStale(key)
		if !ok {
			continue // handled synchronously
		}
		if entry.Dirty || entry.RenderedAtBand != band {
			out = append(out, key)
		}
	}
	for _, entry := range l.cache.dirtyTiles(visible) {
		if visibleSet[entry.Key] {
			continue // already collected above
		}
		out = append(out, entry.Key)
	}
	return out
}

func keySet(keys []TileKey) map[TileKey]bool {
	set := make(map[TileKey]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}
