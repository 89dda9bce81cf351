package vm

import (
	"fmt"

	"strand/internal/config"
)

type heapCounters struct {
	allocCount      uint64
	freeCount       uint64
	collections     uint64
	externalCredits uint64
	externalDebits  uint64
}

// Heap stores all string cells owned by a runtime and keeps the
// external-memory ledger. Handles are monotonically increasing and never
// reused within a run. The heap is single-threaded by design: a
// collection can only happen inside an allocating call, so every
// allocating call is a suspension point for unrooted handles.
type Heap struct {
	next  Handle
	cells map[Handle]*StringCell

	usedBytes     uint64
	externalBytes uint64

	limits   config.Limits
	counters heapCounters
	tracer   HeapTracer

	rt *Runtime
}

func newHeap(limits config.Limits) *Heap {
	return &Heap{
		next:   1,
		cells:  make(map[Handle]*StringCell, 128),
		limits: limits,
	}
}

// SetTracer installs a lifecycle event sink. Pass nil to disable.
func (h *Heap) SetTracer(t HeapTracer) {
	h.tracer = t
}

// alloc places a constructed cell on the heap, charging byteSize against
// the heap limit. fixedSize is a placement hint: external cells have a
// fixed header size, flat cells carry variable inline payload. Allocation
// may trigger a collection cycle before returning.
func (h *Heap) alloc(cell *StringCell, byteSize uint32, fixedSize, longLived bool) (Handle, *RuntimeError) {
	debugAssert(fixedSize == cell.kind.IsExternal(), "placement hint does not match shape")
	trigger := uint64(float64(h.limits.HeapBytes) * h.limits.GCTriggerRatio)
	if h.usedBytes+uint64(byteSize) > trigger {
		h.Collect()
	}
	if h.usedBytes+uint64(byteSize) > h.limits.HeapBytes {
		return 0, errOutOfMemory(byteSize, h.limits.HeapBytes)
	}

	handle := h.next
	h.next++
	cell.allocSize = byteSize
	cell.tenured = longLived
	h.cells[handle] = cell
	h.usedBytes += uint64(byteSize)
	h.counters.allocCount++
	if h.tracer != nil {
		h.tracer.TraceHeapAlloc(handle, cell)
	}
	return handle, nil
}

// Get resolves a handle. Invalid handles are programmer errors.
func (h *Heap) Get(handle Handle) *StringCell {
	cell, ok := h.cells[handle]
	if !ok || cell == nil {
		panic(fmt.Sprintf("vm: invalid handle %d", handle))
	}
	return cell
}

// Contains reports whether the handle refers to a live cell.
func (h *Heap) Contains(handle Handle) bool {
	_, ok := h.cells[handle]
	return ok
}

// CreditExternalMemory records byteCount external bytes owned by the
// cell. Called strictly after the cell is constructed and placed. Going
// over budget forces a budget-driven collection; the credit itself never
// fails.
func (h *Heap) CreditExternalMemory(handle Handle, byteCount uint32) {
	cell := h.Get(handle)
	debugAssert(cell.IsExternal(), "external credit on a non-external cell")
	debugAssert(cell.externalBytes == 0, "external credit applied twice")
	cell.externalBytes = byteCount
	h.externalBytes += uint64(byteCount)
	h.counters.externalCredits++
	if h.tracer != nil {
		h.tracer.TraceExternalCredit(handle, byteCount)
	}
	if h.externalBytes > h.limits.ExternalMemoryBudget {
		h.Collect()
	}
}

// debitExternalMemory reverses a credit during finalization. The debit
// must match the credit exactly; a mismatch is a programmer error.
func (h *Heap) debitExternalMemory(handle Handle, cell *StringCell, byteCount uint32) {
	debugAssert(uint64(byteCount) <= h.externalBytes, "external debit exceeds outstanding credits")
	debugAssert(byteCount == cell.externalBytes, "external debit does not match credit")
	h.externalBytes -= uint64(byteCount)
	cell.externalBytes = 0
	h.counters.externalDebits++
	if h.tracer != nil {
		h.tracer.TraceExternalDebit(handle, byteCount)
	}
}

// CanAllocExternalMemory is the ledger admission check: whether byteCount
// more external bytes fit in the budget right now.
func (h *Heap) CanAllocExternalMemory(byteCount uint64) bool {
	return h.externalBytes+byteCount <= h.limits.ExternalMemoryBudget
}

// ExternalBytes returns the current ledger total.
func (h *Heap) ExternalBytes() uint64 {
	return h.externalBytes
}

// UsedBytes returns the bytes charged against the heap limit.
func (h *Heap) UsedBytes() uint64 {
	return h.usedBytes
}

// Collect runs a full mark/sweep cycle: mark the runtime's roots and all
// tenured cells, trace marked cells through their shape descriptors,
// finalize and free everything unmarked, then sweep the intern table.
func (h *Heap) Collect() {
	h.counters.collections++

	for _, cell := range h.cells {
		cell.marked = false
	}
	if h.rt != nil && h.rt.Symbols != nil {
		h.rt.Symbols.BeginMark()
	}

	for _, cell := range h.cells {
		if cell.tenured {
			h.markCell(cell)
		}
	}
	if h.rt != nil {
		for _, root := range h.rt.roots {
			h.markCell(h.Get(root))
		}
	}

	swept := 0
	for handle, cell := range h.cells {
		if cell.marked {
			continue
		}
		h.finalizeCell(handle, cell)
		delete(h.cells, handle)
		h.usedBytes -= uint64(cell.allocSize)
		h.counters.freeCount++
		swept++
		if h.tracer != nil {
			h.tracer.TraceHeapFree(handle)
		}
	}

	symbolsSwept := 0
	if h.rt != nil {
		if h.rt.Symbols != nil {
			symbolsSwept = h.rt.Symbols.Sweep()
		}
		h.rt.pruneDeadUniqued()
	}

	if h.tracer != nil {
		h.tracer.TraceCollect(CollectInfo{
			Swept:         swept,
			SymbolsSwept:  symbolsSwept,
			LiveCells:     len(h.cells),
			UsedBytes:     h.usedBytes,
			ExternalBytes: h.externalBytes,
		})
	}
}

func (h *Heap) markCell(cell *StringCell) {
	if cell.marked {
		return
	}
	cell.marked = true
	desc := Describe(cell)
	for _, field := range desc.Fields {
		if field.Kind == TraceFieldSymbol && h.rt != nil && h.rt.Symbols != nil {
			h.rt.Symbols.MarkLive(cell.uniqueID)
		}
	}
}

// finalizeCell runs the release hook for shapes that declare one.
// Ordering is strict: debit the ledger first, then drop the buffer.
func (h *Heap) finalizeCell(handle Handle, cell *StringCell) {
	if !Describe(cell).HasFinalizer {
		return
	}
	h.debitExternalMemory(handle, cell, cell.externalBytes)
	cell.narrow = nil
	cell.wide = nil
}

// HeapStats is a point-in-time accounting snapshot.
type HeapStats struct {
	LiveCells       int
	UsedBytes       uint64
	ExternalBytes   uint64
	AllocCount      uint64
	FreeCount       uint64
	Collections     uint64
	ExternalCredits uint64
	ExternalDebits  uint64
}

// Stats returns current counters.
func (h *Heap) Stats() HeapStats {
	return HeapStats{
		LiveCells:       len(h.cells),
		UsedBytes:       h.usedBytes,
		ExternalBytes:   h.externalBytes,
		AllocCount:      h.counters.allocCount,
		FreeCount:       h.counters.freeCount,
		Collections:     h.counters.collections,
		ExternalCredits: h.counters.externalCredits,
		ExternalDebits:  h.counters.externalDebits,
	}
}
