// Package statictiles is the tiled static-layer rendering engine for an
// infinite, pannable, zoomable handwriting canvas.
//
// A document is a variable number of paginated surfaces laid out in world
// space, populated with completed ink strokes. This package maintains, at
// interactive frame rates, a correct pixel image of the "static" content —
// finalized strokes plus page backgrounds — visible in the current
// viewport, across pan/zoom gestures, incremental stroke additions,
// per-stroke invalidation, and theme changes.
//
// # Quick start
//
//	layer := statictiles.NewTiledStaticLayer(statictiles.DefaultLayerConfig(), cam, strokeRenderer)
//	layer.RenderVisible(doc, layout, index, isDark, screenW, screenH)
//	// ... each frame during a pan/zoom gesture:
//	layer.GestureUpdate(screen, screenW, screenH)
//	// ... when the gesture ends:
//	layer.EndGesture()
//	layer.RenderVisible(doc, layout, index, isDark, screenW, screenH)
//
// # Scope
//
// This package does not generate stroke outlines, model pressure/tilt,
// render grain/stamp textures, resolve pen styles or colors, export SVG, or
// serialize anything. It does not draw the active-stroke overlay,
// prediction layer, hover cursor, toolbar, or popovers, and it does not
// perform file I/O, page layout, spatial index construction, input
// handling, or undo/redo. Those are the host application's job; this
// package only consumes the narrow interfaces described in interfaces.go and
// camera.go.
//
// # Architecture
//
// Six cooperating pieces, leaves first: [TileGrid] (pure geometry),
// [TileCache] (LRU bitmap store with a protected set), [TileRenderer]
// (produces one tile's pixels), [TileCompositor] (draws visible tiles),
// [TileScheduler] (priority-ordered async dispatch to worker goroutines or
// a cooperative fallback), and [TiledStaticLayer] (the orchestrator that
// wires the rest together and exposes RenderVisible / BakeStroke /
// GestureUpdate / EndGesture).
package statictiles
