package vm

import "strand/internal/symbols"

// External strings own a separately allocated character buffer. The cell
// charges only its fixed header to the heap; the buffer's byte footprint
// is credited to the external-memory ledger immediately after the cell is
// constructed, and the finalizer debits exactly that amount before the
// buffer is dropped. Because the ledger gates future external
// allocations, credit and debit must always pair exactly.
//
// Two creation paths exist: move-in adopts caller storage without
// copying (the zero-copy path of the construction policy), and the
// zeroed path allocates a fresh buffer of known length for piecewise
// filling. The ordinary variants credit after a successful allocation
// and may force a budget-driven collection afterwards; the long-lived
// variants run the ledger's admission check before allocating and fail
// fast with a distinct error.

// newExternalNarrowMoveIn adopts *storage into a new external narrow
// string. On success the source storage is retired (*storage is nil);
// the buffer must never be aliased by two live values.
func newExternalNarrowMoveIn(rt *Runtime, storage *[]byte, longLived bool) (Handle, *RuntimeError) {
	units := *storage
	assertNarrowUnits(units)
	if uint64(len(units)) > MaxStringLength {
		return 0, errStringTooLong(uint64(len(units)))
	}
	length := uint32(len(units))
	payload, ok := externalPayloadSize(length, true)
	if !ok {
		return 0, errStringTooLong(uint64(length))
	}
	if longLived && !rt.Heap.CanAllocExternalMemory(uint64(payload)) {
		return 0, errExternalBudget(uint64(payload), rt.limits.ExternalMemoryBudget)
	}
	cell := &StringCell{kind: StringExternalNarrow, length: length, narrow: units}
	handle, err := rt.Heap.alloc(cell, externalCellBytes, true, longLived)
	if err != nil {
		return 0, err
	}
	*storage = nil
	// Credit strictly after construction. The credit may force a
	// budget-driven collection, so the fresh cell is rooted across it.
	rt.PushRoot(handle)
	rt.Heap.CreditExternalMemory(handle, payload)
	rt.PopRoot()
	return handle, nil
}

// newExternalWideMoveIn is the wide-encoding move-in path.
func newExternalWideMoveIn(rt *Runtime, storage *[]uint16, longLived bool) (Handle, *RuntimeError) {
	units := *storage
	if uint64(len(units)) > MaxStringLength {
		return 0, errStringTooLong(uint64(len(units)))
	}
	length := uint32(len(units))
	payload, ok := externalPayloadSize(length, false)
	if !ok {
		return 0, errStringTooLong(uint64(length))
	}
	if longLived && !rt.Heap.CanAllocExternalMemory(uint64(payload)) {
		return 0, errExternalBudget(uint64(payload), rt.limits.ExternalMemoryBudget)
	}
	cell := &StringCell{kind: StringExternalWide, length: length, wide: units}
	handle, err := rt.Heap.alloc(cell, externalCellBytes, true, longLived)
	if err != nil {
		return 0, err
	}
	*storage = nil
	rt.PushRoot(handle)
	rt.Heap.CreditExternalMemory(handle, payload)
	rt.PopRoot()
	return handle, nil
}

// newExternalZeroed allocates an external string of known length with a
// zero-filled buffer, used when a long string is built piecewise. The
// admission check runs before any allocation.
func newExternalZeroed(rt *Runtime, length uint32, narrow bool) (Handle, *RuntimeError) {
	if length > MaxStringLength {
		return 0, errStringTooLong(uint64(length))
	}
	payload, ok := externalPayloadSize(length, narrow)
	if !ok {
		return 0, errStringTooLong(uint64(length))
	}
	if !rt.Heap.CanAllocExternalMemory(uint64(payload)) {
		return 0, errExternalBudget(uint64(payload), rt.limits.ExternalMemoryBudget)
	}
	if narrow {
		buf := make([]byte, length)
		return newExternalNarrowMoveIn(rt, &buf, false)
	}
	buf := make([]uint16, length)
	return newExternalWideMoveIn(rt, &buf, false)
}

// InternNarrowMoveIn transfers caller storage directly into a uniqued
// long-lived external string: the ownership-transfer route a symbol table
// uses for long identifiers. The uniqueID is back-patched after
// construction, the one sanctioned post-construction mutation.
func InternNarrowMoveIn(rt *Runtime, storage *[]byte) (Handle, symbols.SymbolID, *RuntimeError) {
	id := rt.Symbols.InternNarrow(*storage)
	if existing, ok := rt.uniqued[id]; ok {
		return existing, id, nil
	}
	rt.Symbols.Pin(id)
	defer rt.Symbols.Unpin(id)
	handle, err := newExternalNarrowMoveIn(rt, storage, true)
	if err != nil {
		return 0, symbols.NoSymbolID, err
	}
	rt.Heap.Get(handle).SetUniqueID(id)
	rt.uniqued[id] = handle
	return handle, id, nil
}
