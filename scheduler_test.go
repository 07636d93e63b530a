package statictiles

import "testing"

func TestOrderForDispatchVisibleFirst(t *testing.T) {
	tiles := []TileKey{{5, 5}, {0, 0}, {1, 1}, {9, 9}}
	visible := map[TileKey]bool{{0, 0}: true, {1, 1}: true}
	ordered := orderForDispatch(tiles, visible)

	if !visible[ordered[0]] || !visible[ordered[1]] {
		t.Errorf("expected visible tiles first, got %v", ordered)
	}
	if visible[ordered[2]] || visible[ordered[3]] {
		t.Errorf("expected peripheral tiles last, got %v", ordered)
	}
	// Relative order within each group preserved (stable sort).
	if ordered[0] != (TileKey{0, 0}) || ordered[1] != (TileKey{1, 1}) {
		t.Errorf("expected visible group order preserved, got %v", ordered[:2])
	}
}

func TestWorkerCountClamped(t *testing.T) {
	n := workerCount()
	if n < 2 || n > 4 {
		t.Errorf("workerCount() = %d, want in [2,4]", n)
	}
}

func testSnapshot(strokes []Stroke) *RenderSnapshot {
	return &RenderSnapshot{
		Doc:        &Document{Strokes: strokes, Pages: []Page{{Paper: PaperBlank}}},
		Layout:     PageLayout{{PageIndex: 0, X: 0, Y: 0, Width: 1000, Height: 1000}},
		DocVersion: 1,
	}
}

func TestFallbackSchedulerDedup(t *testing.T) {
	renderer := NewTileRenderer(&recordingStrokeRenderer{})
	grid := NewTileGrid(testGridConfig())
	sched := NewFallbackScheduler(renderer, testGridConfig(), nil)

	key := TileKey{0, 0}
	index := newBruteSpatialIndex(nil)
	snapshot := testSnapshot(nil)
	visible := map[TileKey]bool{key: true}

	sched.Schedule([]TileKey{key}, visible, index, grid, 0, snapshot)
	sched.Schedule([]TileKey{key}, visible, index, grid, 0, snapshot) // already in-flight

	if len(sched.queue) != 1 {
		t.Errorf("expected exactly one dispatch for a duplicate schedule, got %d", len(sched.queue))
	}
}

func TestFallbackSchedulerCancelThenScheduleRedispatches(t *testing.T) {
	renderer := NewTileRenderer(&recordingStrokeRenderer{})
	grid := NewTileGrid(testGridConfig())
	sched := NewFallbackScheduler(renderer, testGridConfig(), nil)

	key := TileKey{0, 0}
	index := newBruteSpatialIndex(nil)
	snapshot := testSnapshot(nil)
	visible := map[TileKey]bool{key: true}

	sched.Schedule([]TileKey{key}, visible, index, grid, 0, snapshot)
	sched.Cancel()
	sched.Schedule([]TileKey{key}, visible, index, grid, 0, snapshot)

	if len(sched.queue) != 1 {
		t.Errorf("expected a fresh dispatch after cancel, got queue len %d", len(sched.queue))
	}
}

func TestFallbackSchedulerTickBatchesAtMostFour(t *testing.T) {
	renderer := NewTileRenderer(&recordingStrokeRenderer{})
	grid := NewTileGrid(testGridConfig())

	var gotBatches [][]renderResult
	sched := NewFallbackScheduler(renderer, testGridConfig(), func(batch []renderResult) {
		gotBatches = append(gotBatches, batch)
	})

	index := newBruteSpatialIndex(nil)
	snapshot := testSnapshot(nil)
	keys := []TileKey{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}
	visible := map[TileKey]bool{}
	sched.Schedule(keys, visible, index, grid, 0, snapshot)

	sched.Tick()
	if len(gotBatches) != 1 || len(gotBatches[0]) != 4 {
		t.Fatalf("expected first tick to report 4 results, got %v", gotBatches)
	}

	sched.Tick()
	if len(gotBatches) != 2 || len(gotBatches[1]) != 1 {
		t.Fatalf("expected second tick to report the remaining 1 result, got %v", gotBatches)
	}
}

func TestFallbackSchedulerFirstDispatchedIsVisible(t *testing.T) {
	renderer := NewTileRenderer(&recordingStrokeRenderer{})
	grid := NewTileGrid(testGridConfig())

	var got []renderResult
	sched := NewFallbackScheduler(renderer, testGridConfig(), func(batch []renderResult) {
		got = append(got, batch...)
	})

	index := newBruteSpatialIndex(nil)
	snapshot := testSnapshot(nil)
	keys := []TileKey{{9, 9}, {0, 0}}
	visible := map[TileKey]bool{{0, 0}: true}
	sched.Schedule(keys, visible, index, grid, 0, snapshot)
	sched.Tick()

	if len(got) == 0 || got[0].Key != (TileKey{0, 0}) {
		t.Errorf("expected the visible tile dispatched first, got %v", got)
	}
}

func TestWorkerSchedulerRendersAndReportsBatch(t *testing.T) {
	renderer := NewTileRenderer(&recordingStrokeRenderer{})
	grid := NewTileGrid(testGridConfig())

	done := make(chan []renderResult, 1)
	sched := NewWorkerScheduler(renderer, testGridConfig(), func(batch []renderResult) {
		done <- batch
	})
	defer sched.Destroy()

	key := TileKey{0, 0}
	index := newBruteSpatialIndex(nil)
	snapshot := testSnapshot(nil)
	visible := map[TileKey]bool{key: true}

	sched.Schedule([]TileKey{key}, visible, index, grid, 0, snapshot)

	batch := <-done
	if len(batch) != 1 || batch[0].Key != key {
		t.Errorf("expected a single result for %v, got %v", key, batch)
	}
	if batch[0].Pixels == nil {
		t.Error("expected rendered pixels in the result")
	}
}

func TestWorkerSchedulerDedup(t *testing.T) {
	renderer := NewTileRenderer(&recordingStrokeRenderer{})
	grid := NewTileGrid(testGridConfig())
	sched := NewWorkerScheduler(renderer, testGridConfig(), nil)
	defer sched.Destroy()

	key := TileKey{0, 0}
	index := newBruteSpatialIndex(nil)
	snapshot := testSnapshot(nil)
	visible := map[TileKey]bool{key: true}

	sched.mu.Lock()
	sched.inFlight[key] = struct{}{}
	sched.mu.Unlock()

	sched.Schedule([]TileKey{key}, visible, index, grid, 0, snapshot)

	select {
	case job := <-sched.jobs:
		t.Errorf("expected no dispatch for an already in-flight key, got %v", job.Key)
	default:
	}
}
