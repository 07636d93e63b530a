package statictiles

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/hajimehoshi/ebiten/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// RenderSnapshot is the versioned, immutable-from-the-worker's-perspective
// document state sent to workers (spec §5): a whole new snapshot replaces
// the previous one whenever DocVersion changes, so workers never share
// mutable state with the orchestrator. Resources is the host's opaque
// grain/stamp texture bundle; per spec §5 it is "transferred to workers
// once, and retransferred on user-initiated changes" rather than on every
// document edit, so it carries its own ResourceVersion independent of
// DocVersion — a worker (or the orchestrator, on a cancelled/stale result)
// can tell a resource-only update apart from a document-only one.
type RenderSnapshot struct {
	Doc        *Document
	Layout     PageLayout
	IsDark     bool
	DocVersion uint64

	Resources       any
	ResourceVersion uint64
}

// renderJob is a single-tile render request dispatched to a worker.
// StrokeIDs is the spatial index's query result for WorldBounds, computed on
// the orchestrator thread — workers never see the index itself (spec §4.5).
type renderJob struct {
	Key         TileKey
	Band        ZoomBand
	WorldBounds Rect
	StrokeIDs   []StrokeID
	Snapshot    *RenderSnapshot
	generation  uint64
}

// preQueriedIndex is a throwaway SpatialIndex wrapping one job's already-
// computed stroke-id list, so a worker can feed TileRenderer.RenderTile
// (which expects a SpatialIndex) without ever touching the real index.
type preQueriedIndex struct {
	ids []StrokeID
}

func (p preQueriedIndex) QueryRect(minX, minY, maxX, maxY float64) []StrokeID {
	return p.ids
}

// renderResult carries a rendered tile's pixels back to the orchestrator by
// move: the worker that produced Pixels gives up any reference to it.
type renderResult struct {
	Key        TileKey
	Band       ZoomBand
	DocVersion uint64
	Pixels     *ebiten.Image
	StrokeIDs  map[StrokeID]struct{}
	Cancelled  bool
}

// BatchCompleteFunc is invoked with the results that arrived since the last
// call, coalesced to at most once per collection cycle (spec §4.5 step 4).
type BatchCompleteFunc func([]renderResult)

// TileScheduler accepts tile render requests and asynchronously produces
// pixels, notifying the orchestrator in coalesced batches (spec §4.5).
type TileScheduler interface {
	Schedule(tiles []TileKey, visible map[TileKey]bool, index SpatialIndex, grid *TileGrid, band ZoomBand, snapshot *RenderSnapshot)
	Cancel()
	Destroy()
}

// workerCount returns N = clamp(cores-1, 2, 4) per spec §4.5.
func workerCount() int {
	n := runtime.NumCPU() - 1
	if n < 2 {
		return 2
	}
	if n > 4 {
		return 4
	}
	return n
}

// orderForDispatch partitions tiles into visible-first / peripheral-second
// order, preserving relative order within each group (spec §4.5's schedule
// step; stability matters because VisibleTiles already ordered by distance).
func orderForDispatch(tiles []TileKey, visible map[TileKey]bool) []TileKey {
	ordered := make([]TileKey, len(tiles))
	copy(ordered, tiles)
	sort.SliceStable(ordered, func(i, j int) bool {
		return visible[ordered[i]] && !visible[ordered[j]]
	})
	return ordered
}

// workerScheduler is the preferred concurrency form: a fixed pool of worker
// goroutines, each with its own render surface pool, supervised by an
// errgroup so Destroy can tear every worker down together. Grounded on the
// bounded-concurrency fan-out in a-kr-gps-overlay-video's prefetchTiles
// (WaitGroup + buffered channel as a semaphore), generalized here to a
// long-lived pool rather than a one-shot burst, using golang.org/x/sync —
// already present indirectly in willow's own go.mod — for pool supervision.
type workerScheduler struct {
	renderer *TileRenderer
	gridCfg  GridConfig

	jobs    chan renderJob
	results chan renderResult

	mu       sync.Mutex
	inFlight map[TileKey]struct{}

	generation uint64 // atomic; bumped by Cancel to invalidate in-flight jobs

	// sem bounds the number of tiles simultaneously queued-or-rendering to a
	// small multiple of the worker count, independent of the jobs channel's
	// buffer size, so a burst of Schedule calls cannot pile up an unbounded
	// amount of stale work behind the workers.
	sem *semaphore.Weighted

	group *errgroup.Group

	onBatchComplete BatchCompleteFunc
	pendingMu       sync.Mutex
	pending         []renderResult
	done            chan struct{}
}

// NewWorkerScheduler starts N=workerCount() goroutines rendering tiles with
// renderer. onBatchComplete is invoked from an internal collector goroutine
// whenever one or more results have arrived since the last invocation;
// callers must make it safe to call off the Schedule-calling goroutine.
// This approximates spec §4.5's "coalesced one-shot scheduled for the next
// frame boundary": this package has no frame clock of its own, so it
// coalesces on arrival rather than on an explicit frame tick — a caller
// driving its own frame loop (e.g. TiledStaticLayer) is still free to batch
// further by deferring composite to its own next Update.
func NewWorkerScheduler(renderer *TileRenderer, gridCfg GridConfig, onBatchComplete BatchCompleteFunc) *workerScheduler {
	workers := workerCount()
	s := &workerScheduler{
		renderer:        renderer,
		gridCfg:         gridCfg,
		jobs:            make(chan renderJob, 256),
		results:         make(chan renderResult, 256),
		inFlight:        make(map[TileKey]struct{}),
		sem:             semaphore.NewWeighted(int64(workers) * 2),
		onBatchComplete: onBatchComplete,
		done:            make(chan struct{}),
	}

	group, _ := errgroup.WithContext(context.Background())
	s.group = group
	for i := 0; i < workerCount(); i++ {
		group.Go(s.workerLoop)
	}
	go s.collectLoop()
	return s
}

func (s *workerScheduler) workerLoop() error {
	var pool surfacePool
	for job := range s.jobs {
		if atomic.LoadUint64(&s.generation) != job.generation {
			s.finishInFlight(job.Key)
			continue
		}

		tilePhysical := s.gridCfg.TilePhysicalSize(job.Band)
		surface := pool.Acquire(tilePhysical, tilePhysical)
		entry := &TileEntry{Key: job.Key, Pixels: surface, WorldBounds: job.WorldBounds, RenderedAtBand: job.Band}
		index := preQueriedIndex{ids: job.StrokeIDs}
		s.renderer.RenderTile(entry, job.Snapshot.Doc, job.Snapshot.Layout, index, job.Band, s.gridCfg.TileWorldSize, job.Snapshot.IsDark, job.Snapshot.Resources)

		cancelled := atomic.LoadUint64(&s.generation) != job.generation
		s.finishInFlight(job.Key)
		s.results <- renderResult{
			Key:        job.Key,
			Band:       job.Band,
			DocVersion: job.Snapshot.DocVersion,
			Pixels:     entry.Pixels,
			StrokeIDs:  entry.StrokeIDs,
			Cancelled:  cancelled,
		}
	}
	return nil
}

func (s *workerScheduler) finishInFlight(key TileKey) {
	s.mu.Lock()
	delete(s.inFlight, key)
	s.mu.Unlock()
	s.sem.Release(1)
}

// collectLoop accumulates results and notifies onBatchComplete whenever at
// least one has arrived, coalescing any additional results that arrive
// while the callback runs.
func (s *workerScheduler) collectLoop() {
	for {
		select {
		case r, ok := <-s.results:
			if !ok {
				return
			}
			s.pendingMu.Lock()
			s.pending = append(s.pending, r)
			for drained := false; !drained; {
				select {
				case more, ok := <-s.results:
					if !ok {
						drained = true
						continue
					}
					s.pending = append(s.pending, more)
				default:
					drained = true
				}
			}
			batch := s.pending
			s.pending = nil
			s.pendingMu.Unlock()
			if s.onBatchComplete != nil {
				s.onBatchComplete(batch)
			}
		case <-s.done:
			return
		}
	}
}

// Schedule partitions tiles into visible-first/peripheral-second order,
// skips keys already in flight, and enqueues the rest, pre-querying index on
// this (the orchestrator) goroutine for each tile before dispatch (spec
// §4.5).
func (s *workerScheduler) Schedule(tiles []TileKey, visible map[TileKey]bool, index SpatialIndex, grid *TileGrid, band ZoomBand, snapshot *RenderSnapshot) {
	ordered := orderForDispatch(tiles, visible)
	gen := atomic.LoadUint64(&s.generation)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range ordered {
		if _, busy := s.inFlight[key]; busy {
			continue
		}
		if !s.sem.TryAcquire(1) {
			// At capacity: leave the key out of inFlight so a later
			// Schedule call (next frame) retries it.
			continue
		}
		s.inFlight[key] = struct{}{}
		bounds := grid.TileBounds(key)
		job := renderJob{
			Key:         key,
			Band:        band,
			WorldBounds: bounds,
			StrokeIDs:   index.QueryRect(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height),
			Snapshot:    snapshot,
			generation:  gen,
		}
		select {
		case s.jobs <- job:
		default:
			delete(s.inFlight, key)
			s.sem.Release(1)
		}
	}
}

// Cancel empties the in-flight registry and bumps the generation counter so
// workers currently rendering discard their result on completion (spec
// §4.5, §5: best-effort, checked per tile rather than per stroke, since
// TileRenderer renders a tile as one atomic unit with no per-stroke hook).
func (s *workerScheduler) Cancel() {
	atomic.AddUint64(&s.generation, 1)
	s.mu.Lock()
	s.inFlight = make(map[TileKey]struct{})
	s.mu.Unlock()
	for {
		select {
		case <-s.jobs:
			s.sem.Release(1)
		default:
			return
		}
	}
}

// Destroy cancels and terminates every worker goroutine.
func (s *workerScheduler) Destroy() {
	s.Cancel()
	close(s.jobs)
	close(s.done)
	_ = s.group.Wait()
}

var _ TileScheduler = (*workerScheduler)(nil)

// fallbackScheduler is the cooperative form used when worker creation fails:
// it runs on the orchestrator's own goroutine and must be driven by a
// per-frame Tick call, rendering at most 4 tiles per tick in the same
// priority order the worker pool would use (spec §4.5).
type fallbackScheduler struct {
	renderer *TileRenderer
	gridCfg  GridConfig
	pool     surfacePool

	queue    []renderJob
	inFlight map[TileKey]struct{}

	onBatchComplete BatchCompleteFunc
}

// NewFallbackScheduler creates a cooperative scheduler; the caller must
// invoke Tick once per frame to make progress.
func NewFallbackScheduler(renderer *TileRenderer, gridCfg GridConfig, onBatchComplete BatchCompleteFunc) *fallbackScheduler {
	return &fallbackScheduler{
		renderer:        renderer,
		gridCfg:         gridCfg,
		inFlight:        make(map[TileKey]struct{}),
		onBatchComplete: onBatchComplete,
	}
}

func (s *fallbackScheduler) Schedule(tiles []TileKey, visible map[TileKey]bool, index SpatialIndex, grid *TileGrid, band ZoomBand, snapshot *RenderSnapshot) {
	ordered := orderForDispatch(tiles, visible)
	for _, key := range ordered {
		if _, busy := s.inFlight[key]; busy {
			continue
		}
		s.inFlight[key] = struct{}{}
		bounds := grid.TileBounds(key)
		s.queue = append(s.queue, renderJob{
			Key:         key,
			Band:        band,
			WorldBounds: bounds,
			StrokeIDs:   index.QueryRect(bounds.X, bounds.Y, bounds.X+bounds.Width, bounds.Y+bounds.Height),
			Snapshot:    snapshot,
		})
	}
}

// Tick renders up to 4 queued tiles synchronously, then reports the batch.
func (s *fallbackScheduler) Tick() {
	const maxPerTick = 4
	n := len(s.queue)
	if n > maxPerTick {
		n = maxPerTick
	}
	if n == 0 {
		return
	}
	batch := s.queue[:n]
	s.queue = s.queue[n:]

	results := make([]renderResult, 0, n)
	for _, job := range batch {
		delete(s.inFlight, job.Key)
		tilePhysical := s.gridCfg.TilePhysicalSize(job.Band)
		surface := s.pool.Acquire(tilePhysical, tilePhysical)
		entry := &TileEntry{Key: job.Key, Pixels: surface, WorldBounds: job.WorldBounds, RenderedAtBand: job.Band}
		index := preQueriedIndex{ids: job.StrokeIDs}
		s.renderer.RenderTile(entry, job.Snapshot.Doc, job.Snapshot.Layout, index, job.Band, s.gridCfg.TileWorldSize, job.Snapshot.IsDark, job.Snapshot.Resources)
		results = append(results, renderResult{
			Key:        job.Key,
			Band:       job.Band,
			DocVersion: job.Snapshot.DocVersion,
			Pixels:     entry.Pixels,
			StrokeIDs:  entry.StrokeIDs,
		})
	}
	if s.onBatchComplete != nil {
		s.onBatchComplete(results)
	}
}

func (s *fallbackScheduler) Cancel() {
	s.queue = nil
	s.inFlight = make(map[TileKey]struct{})
}

func (s *fallbackScheduler) Destroy() {
	s.Cancel()
}

var _ TileScheduler = (*fallbackScheduler)(nil)
