package vm

import (
	"strand/internal/config"
	"strand/internal/symbols"
)

// Runtime owns one single-threaded string heap plus the string caches the
// construction policy consults: the empty-string singleton and the
// per-code-unit single-character cache. It also carries the root-handle
// stack that keeps values alive across allocating calls.
//
// Every allocating operation is a suspension point: it may run a
// collection before returning. Callers must root any handle that has to
// survive a subsequent allocation.
type Runtime struct {
	Heap    *Heap
	Symbols *symbols.Table

	limits config.Limits
	roots  []Handle

	emptyStr  Handle
	charCache map[uint16]Handle
	uniqued   map[symbols.SymbolID]Handle
}

// NewRuntime builds a runtime with the given limits. The only failure
// mode is a heap limit too small to hold the empty-string singleton.
func NewRuntime(limits config.Limits) (*Runtime, *RuntimeError) {
	rt := &Runtime{
		Heap:      newHeap(limits),
		Symbols:   symbols.NewTable(),
		limits:    limits,
		charCache: make(map[uint16]Handle, 64),
		uniqued:   make(map[symbols.SymbolID]Handle, 16),
	}
	rt.Heap.rt = rt

	empty, err := newFlatNarrow(rt, nil, symbols.NoSymbolID, true)
	if err != nil {
		return nil, err
	}
	rt.emptyStr = empty
	return rt, nil
}

// Limits returns the configured limits.
func (rt *Runtime) Limits() config.Limits {
	return rt.limits
}

// PushRoot pins a handle for the duration of subsequent allocations.
func (rt *Runtime) PushRoot(h Handle) {
	rt.roots = append(rt.roots, h)
}

// PopRoot unpins the most recently pushed root.
func (rt *Runtime) PopRoot() {
	debugAssert(len(rt.roots) > 0, "root stack underflow")
	rt.roots = rt.roots[:len(rt.roots)-1]
}

// PopRoots unpins the n most recently pushed roots.
func (rt *Runtime) PopRoots(n int) {
	debugAssert(len(rt.roots) >= n, "root stack underflow")
	rt.roots = rt.roots[:len(rt.roots)-n]
}

// EmptyString returns the process-wide empty-string singleton.
func (rt *Runtime) EmptyString() Handle {
	return rt.emptyStr
}

// GetCharacterString returns the cached singleton for a single code unit,
// creating it on first use. Cache entries are long-lived and never swept,
// so repeated requests for the same unit return the identical object.
func (rt *Runtime) GetCharacterString(unit uint16) (Handle, *RuntimeError) {
	if h, ok := rt.charCache[unit]; ok {
		return h, nil
	}
	var h Handle
	var err *RuntimeError
	if unit <= maxNarrowUnit {
		h, err = newFlatNarrow(rt, []byte{byte(unit)}, symbols.NoSymbolID, true)
	} else {
		h, err = newFlatWide(rt, []uint16{unit}, symbols.NoSymbolID, true)
	}
	if err != nil {
		return 0, err
	}
	rt.charCache[unit] = h
	return h, nil
}

// Intern returns the uniqued string for the content of h, assigning a
// stable SymbolID. An anonymous external cell is transferred in place via
// the one-time uniqueID back-patch; flat cells get a long-lived uniqued
// copy. Interning the same content twice yields the identical object.
func (rt *Runtime) Intern(h Handle) (Handle, symbols.SymbolID, *RuntimeError) {
	cell := rt.Heap.Get(h)
	if cell.IsUniqued() {
		return h, cell.UniqueID(), nil
	}

	var id symbols.SymbolID
	if cell.IsNarrow() {
		id = rt.Symbols.InternNarrow(cell.narrow[:cell.length])
	} else {
		id = rt.Symbols.InternWide(cell.wide[:cell.length])
	}
	if existing, ok := rt.uniqued[id]; ok {
		return existing, id, nil
	}

	if cell.IsExternal() {
		cell.SetUniqueID(id)
		rt.uniqued[id] = h
		return h, id, nil
	}

	// The copy's own allocation may collect before the cell is placed;
	// pin the fresh symbol so that cycle cannot sweep it.
	rt.Symbols.Pin(id)
	defer rt.Symbols.Unpin(id)
	rt.PushRoot(h)
	defer rt.PopRoot()
	var uh Handle
	var err *RuntimeError
	if cell.IsNarrow() {
		uh, err = newFlatNarrow(rt, cell.narrow[:cell.length], id, true)
	} else {
		uh, err = newFlatWide(rt, cell.wide[:cell.length], id, true)
	}
	if err != nil {
		return 0, symbols.NoSymbolID, err
	}
	rt.uniqued[id] = uh
	return uh, id, nil
}

// UniquedString resolves a SymbolID back to its canonical string, if it
// is still alive.
func (rt *Runtime) UniquedString(id symbols.SymbolID) (Handle, bool) {
	h, ok := rt.uniqued[id]
	return h, ok
}

// Collect forces a collection cycle.
func (rt *Runtime) Collect() {
	rt.Heap.Collect()
}

// pruneDeadUniqued drops canonical-string entries whose cells were swept.
// The map is a weak index: it never keeps a string alive by itself.
func (rt *Runtime) pruneDeadUniqued() {
	for id, h := range rt.uniqued {
		if !rt.Heap.Contains(h) {
			delete(rt.uniqued, id)
		}
	}
}
