package statictiles

import (
	"errors"
	"fmt"
	"os"
)

// Debug enables verbose stderr logging of cache statistics (from
// TiledStaticLayer.Stats) and of a few diagnostic events such as stroke
// invalidations and resource updates (spec.md §13 supplemented features). Off by default, matching willow's
// Scene.debug gate.
var Debug bool

// ErrSurfaceAlloc indicates a tile's offscreen surface could not be sized
// (a non-positive size was requested). It is only logged, never returned to
// the host: surfacePool.Acquire substitutes a 1x1 surface, and the tile is
// then rendered into it and marked clean like any other; it is not left
// dirty for a retry.
var ErrSurfaceAlloc = errors.New("statictiles: surface allocation failed")

// ErrWorkersUnavailable indicates the worker-pool scheduler could not be
// started, and the cooperative fallback is in use instead (spec §4.5).
var ErrWorkersUnavailable = errors.New("statictiles: worker pool unavailable")

// logf writes a "statictiles: "-prefixed message to stderr, mirroring
// atlas.go's plain log.Printf-style warnings.
func logf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, "statictiles: "+format+"\n", args...)
}

// debugLog writes a "[statictiles] "-prefixed message to stderr only when
// Debug is set, mirroring debug.go's debugLog gate.
func debugLog(format string, args ...any) {
	if !Debug {
		return
	}
	_, _ = fmt.Fprintf(os.Stderr, "[statictiles] "+format+"\n", args...)
}

func logCacheStats(stats CacheStats, totalMemory int64) {
	debugLog("cache: hits=%d misses=%d evictions=%d hitRate=%.2f memory=%d",
		stats.Hits, stats.Misses, stats.Evictions, stats.HitRate(), totalMemory)
}
