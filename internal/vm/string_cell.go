package vm

import "strand/internal/symbols"

// Handle is a stable, monotonically increasing reference to a heap cell.
// Handle(0) is always invalid.
type Handle uint32

// MaxStringLength is the maximum number of code units in any string.
// Requests beyond it fail with FaultStringTooLong before touching the
// allocator.
const MaxStringLength = 256 << 20

// StringKind crosses the two storage axes: encoding (narrow = one byte
// per unit, wide = two) and placement (flat = payload charged to the heap
// cell itself, external = separately owned buffer on the external ledger).
// The identity axis (anonymous vs uniqued) is an orthogonal capability
// flag on the cell.
type StringKind uint8

const (
	StringFlatNarrow StringKind = iota
	StringFlatWide
	StringExternalNarrow
	StringExternalWide
)

// String returns a short label used in dumps and trace output.
func (k StringKind) String() string {
	switch k {
	case StringFlatNarrow:
		return "flat-narrow"
	case StringFlatWide:
		return "flat-wide"
	case StringExternalNarrow:
		return "ext-narrow"
	case StringExternalWide:
		return "ext-wide"
	default:
		return "invalid"
	}
}

// IsNarrow reports one byte per code unit.
func (k StringKind) IsNarrow() bool {
	return k == StringFlatNarrow || k == StringExternalNarrow
}

// IsExternal reports separately owned character storage.
func (k StringKind) IsExternal() bool {
	return k == StringExternalNarrow || k == StringExternalWide
}

func (k StringKind) unitSize() uint32 {
	if k.IsNarrow() {
		return 1
	}
	return 2
}

// Modeled header sizes. Flat cells charge header plus inline payload to
// the heap at allocation time; external cells charge a fixed header and
// put the buffer bytes on the external ledger instead.
const (
	flatHeaderBytes   = 16
	uniquedFieldBytes = 4
	externalCellBytes = 32
)

// StringCell is an immutable string heap object. The only sanctioned
// post-construction mutation is the one-time uniqueID back-patch when
// storage ownership is transferred into a uniqued external form.
type StringCell struct {
	kind    StringKind
	uniqued bool
	marked  bool
	tenured bool

	length        uint32
	allocSize     uint32 // bytes charged to the heap for this cell
	externalBytes uint32 // bytes credited to the external ledger

	uniqueID symbols.SymbolID

	narrow []byte
	wide   []uint16
}

// Kind returns the storage/encoding shape.
func (c *StringCell) Kind() StringKind { return c.kind }

// Length returns the number of code units. O(1), never fails.
func (c *StringCell) Length() uint32 { return c.length }

// IsNarrow reports whether every unit occupies one byte.
func (c *StringCell) IsNarrow() bool { return c.kind.IsNarrow() }

// IsExternal reports whether the character storage is a separate buffer.
func (c *StringCell) IsExternal() bool { return c.kind.IsExternal() }

// IsUniqued reports whether the cell carries a stable unique identifier.
func (c *StringCell) IsUniqued() bool { return c.uniqued }

// UniqueID returns the interning identity, or NoSymbolID for anonymous cells.
func (c *StringCell) UniqueID() symbols.SymbolID {
	if !c.uniqued {
		return symbols.NoSymbolID
	}
	return c.uniqueID
}

// SetUniqueID back-patches the interning identity exactly once, after an
// ownership transfer into a uniqued external form. Calling it twice, or
// on an inline cell, is a programmer error.
func (c *StringCell) SetUniqueID(id symbols.SymbolID) {
	debugAssert(c.IsExternal(), "uniqueID back-patch is only sanctioned for external cells")
	debugAssert(!c.uniqued, "uniqueID may be set at most once")
	debugAssert(id.IsValid(), "uniqueID back-patch requires a valid symbol")
	c.uniqued = true
	c.uniqueID = id
}

// UnitAt returns code unit i, widened. All shared comparison algorithms
// are written against this accessor. Bounds are the caller's invariant.
func (c *StringCell) UnitAt(i uint32) uint16 {
	debugAssert(i < c.length, "code unit index out of range")
	if c.kind.IsNarrow() {
		return uint16(c.narrow[i])
	}
	return c.wide[i]
}

// flatAllocationSize computes header + length*unitSize with overflow
// checks. ok is false when the size cannot be represented.
func flatAllocationSize(length uint32, narrow, uniqued bool) (uint32, bool) {
	unit := uint32(2)
	if narrow {
		unit = 1
	}
	payload, ok := MulUint32Checked(length, unit)
	if !ok {
		return 0, false
	}
	header := uint32(flatHeaderBytes)
	if uniqued {
		header += uniquedFieldBytes
	}
	return AddUint32Checked(payload, header)
}

// externalPayloadSize computes the buffer byte footprint for the ledger.
func externalPayloadSize(length uint32, narrow bool) (uint32, bool) {
	unit := uint32(2)
	if narrow {
		unit = 1
	}
	return MulUint32Checked(length, unit)
}
