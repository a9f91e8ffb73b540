package fractal

import (
	"context"
	"unsafe"

	"github.com/shirou/gopsutil/v4/mem"

	"github.com/driftdb/driftdb/storage/batchjournal"
)

// budgetFraction is the share of free system memory the runtime is
// willing to hold as unflushed row deltas, spread across every live
// model: 0.02 × free_bytes / max(1, model_count).
const budgetFraction = 0.02

// deltaSize approximates sizeof(DataDelta): batchjournal.Event is the
// closest in-process representation of one buffered row delta. This
// undercounts a cell's variable-length payload (the slice header's
// backing array isn't included), so the resulting cap admits more deltas
// than the budget would if payloads were counted.
var deltaSize = uint64(unsafe.Sizeof(batchjournal.Event{}))

// PerModelDeltaMax queries free system memory via gopsutil and converts
// the free-memory budget fraction into a per-model delta-count cap.
// Call once at startup, or whenever
// modelCount changes materially (a model is created or dropped).
func PerModelDeltaMax(ctx context.Context, modelCount int) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	if modelCount < 1 {
		modelCount = 1
	}
	freeBytes := float64(vm.Available)
	perModel := (budgetFraction * freeBytes) / float64(modelCount)
	return uint64(perModel) / deltaSize, nil
}
