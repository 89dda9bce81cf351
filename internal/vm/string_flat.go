package vm

import "strand/internal/symbols"

// maxNarrowUnit is the highest code unit admitted to narrow storage.
// Narrow strings hold the ASCII subset; producers guarantee the
// invariant, consumers never check it.
const maxNarrowUnit = 0x7F

// assertNarrowUnits checks the producer-guaranteed narrow invariant at
// the narrow entry points. Debug builds only; release builds skip the
// scan entirely.
func assertNarrowUnits(units []byte) {
	if !debugBuild {
		return
	}
	for _, u := range units {
		debugAssert(u <= maxNarrowUnit, "narrow unit outside the narrow range")
	}
}

// Flat strings embed their character payload in the allocation itself:
// the whole size is computed up front and charged to the heap, and the
// payload is copy-constructed from the source at creation time. Crossing
// {narrow, wide} x {anonymous, uniqued} gives the four concrete shapes;
// uniqued shapes carry the extra uniqueID field the collector traces.

// newFlatNarrow allocates a narrow flat string. Producers must guarantee
// every unit is narrow-representable; debug builds assert it. Pass a
// valid uniqueID to construct the uniqued shape.
func newFlatNarrow(rt *Runtime, src []byte, uniqueID symbols.SymbolID, longLived bool) (Handle, *RuntimeError) {
	assertNarrowUnits(src)
	length, size, err := checkFlatSize(len(src), true, uniqueID.IsValid())
	if err != nil {
		return 0, err
	}
	cell := &StringCell{
		kind:     StringFlatNarrow,
		uniqued:  uniqueID.IsValid(),
		uniqueID: uniqueID,
		length:   length,
	}
	handle, allocErr := rt.Heap.alloc(cell, size, false, longLived)
	if allocErr != nil {
		return 0, allocErr
	}
	cell.narrow = make([]byte, length)
	copy(cell.narrow, src)
	return handle, nil
}

// newFlatWide allocates a wide flat string.
func newFlatWide(rt *Runtime, src []uint16, uniqueID symbols.SymbolID, longLived bool) (Handle, *RuntimeError) {
	length, size, err := checkFlatSize(len(src), false, uniqueID.IsValid())
	if err != nil {
		return 0, err
	}
	cell := &StringCell{
		kind:     StringFlatWide,
		uniqued:  uniqueID.IsValid(),
		uniqueID: uniqueID,
		length:   length,
	}
	handle, allocErr := rt.Heap.alloc(cell, size, false, longLived)
	if allocErr != nil {
		return 0, allocErr
	}
	cell.wide = make([]uint16, length)
	copy(cell.wide, src)
	return handle, nil
}

// newFlatZeroed allocates a flat string of known length with zeroed
// payload, for the builder to fill in place.
func newFlatZeroed(rt *Runtime, length uint32, narrow bool) (Handle, *RuntimeError) {
	if length > MaxStringLength {
		return 0, errStringTooLong(uint64(length))
	}
	size, ok := flatAllocationSize(length, narrow, false)
	if !ok {
		return 0, errStringTooLong(uint64(length))
	}
	kind := StringFlatWide
	if narrow {
		kind = StringFlatNarrow
	}
	cell := &StringCell{kind: kind, length: length}
	handle, err := rt.Heap.alloc(cell, size, false, false)
	if err != nil {
		return 0, err
	}
	if narrow {
		cell.narrow = make([]byte, length)
	} else {
		cell.wide = make([]uint16, length)
	}
	return handle, nil
}

func checkFlatSize(srcLen int, narrow, uniqued bool) (uint32, uint32, *RuntimeError) {
	if uint64(srcLen) > MaxStringLength {
		return 0, 0, errStringTooLong(uint64(srcLen))
	}
	length := uint32(srcLen)
	size, ok := flatAllocationSize(length, narrow, uniqued)
	if !ok {
		return 0, 0, errStringTooLong(uint64(srcLen))
	}
	return length, size, nil
}
