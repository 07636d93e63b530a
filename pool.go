package statictiles

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// surfacePool manages reusable offscreen ebiten.Images keyed by exact
// dimensions, so repeated tile reallocation at the same tilePhysical size
// (the overwhelmingly common case — most tiles share one zoom band) does
// not repeatedly hit the GPU allocator. Adapted from willow's
// renderTexturePool (rendertarget.go); unlike that pool, sizes are kept
// exact rather than rounded to a power of two, because a tile surface's
// size must match tilePhysical exactly — the compositor and renderer both
// treat the full surface as the tile's content, with no sub-image crop.
type surfacePool struct {
	buckets map[uint64][]*ebiten.Image
}

// poolKey packs exact width and height into a single uint64.
func poolKey(w, h int) uint64 {
	return uint64(uint32(w))<<32 | uint64(uint32(h))
}

// Acquire returns a cleared offscreen image of exactly (w, h) pixels. A
// non-positive size (a band/config computation gone wrong upstream) would
// panic inside ebiten.NewImageWithOptions; per spec.md §7 this core never
// lets an internal failure panic across to the host, so Acquire logs
// ErrSurfaceAlloc and clamps to a 1x1 surface instead.
func (p *surfacePool) Acquire(w, h int) *ebiten.Image {
	if w <= 0 || h <= 0 {
		logf("%v: requested %dx%d, clamping to 1x1", ErrSurfaceAlloc, w, h)
		w, h = 1, 1
	}
	key := poolKey(w, h)

	if p.buckets != nil {
		if stack := p.buckets[key]; len(stack) > 0 {
			img := stack[len(stack)-1]
			p.buckets[key] = stack[:len(stack)-1]
			img.Clear()
			return img
		}
	}

	return ebiten.NewImageWithOptions(
		image.Rect(0, 0, w, h),
		&ebiten.NewImageOptions{Unmanaged: true},
	)
}

// Release returns an image to the pool for reuse. The image is cleared on
// next Acquire, not here, to avoid redundant GPU work if released then
// immediately re-acquired.
func (p *surfacePool) Release(img *ebiten.Image) {
	if img == nil {
		return
	}
	b := img.Bounds()
	key := poolKey(b.Dx(), b.Dy())

	if p.buckets == nil {
		p.buckets = make(map[uint64][]*ebiten.Image)
	}
	p.buckets[key] = append(p.buckets[key], img)
}
