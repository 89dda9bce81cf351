package vm

// StringView is a read-only, zero-copy window over a flat string's
// character data. A view is only valid while its string is rooted: it
// does not keep the string alive on its own.
type StringView struct {
	cell *StringCell
}

// EnsureFlat forces a value into flat form before direct access. Every
// representation in this subsystem is already flat; the hook is the
// boundary where a composite representation elsewhere in a runtime would
// flatten itself.
func EnsureFlat(rt *Runtime, h Handle) Handle {
	return h
}

// CreateView returns a zero-copy window over the string's units,
// flattening first.
func CreateView(rt *Runtime, h Handle) StringView {
	flat := EnsureFlat(rt, h)
	return StringView{cell: rt.Heap.Get(flat)}
}

// Length returns the number of code units in the window.
func (v StringView) Length() uint32 { return v.cell.length }

// IsNarrow reports the underlying encoding.
func (v StringView) IsNarrow() bool { return v.cell.IsNarrow() }

// UnitAt returns code unit i, widened.
func (v StringView) UnitAt(i uint32) uint16 { return v.cell.UnitAt(i) }

// NarrowBytes exposes the narrow payload without copying. Nil for wide
// strings. Callers must not mutate it.
func (v StringView) NarrowBytes() []byte {
	if !v.cell.IsNarrow() {
		return nil
	}
	return v.cell.narrow[:v.cell.length]
}

// WideUnits exposes the wide payload without copying. Nil for narrow
// strings. Callers must not mutate it.
func (v StringView) WideUnits() []uint16 {
	if v.cell.IsNarrow() {
		return nil
	}
	return v.cell.wide[:v.cell.length]
}

// CopyUTF16Into decodes the string into a caller-supplied wide buffer,
// widening narrow units losslessly. The buffer must hold Length() units.
func (c *StringCell) CopyUTF16Into(dst []uint16) {
	debugAssert(uint64(len(dst)) >= uint64(c.length), "destination buffer too small")
	if c.IsNarrow() {
		for i := uint32(0); i < c.length; i++ {
			dst[i] = uint16(c.narrow[i])
		}
		return
	}
	copy(dst, c.wide[:c.length])
}

// AppendUTF16 appends the decoded wide units to dst and returns it.
func (c *StringCell) AppendUTF16(dst []uint16) []uint16 {
	if c.IsNarrow() {
		for i := uint32(0); i < c.length; i++ {
			dst = append(dst, uint16(c.narrow[i]))
		}
		return dst
	}
	return append(dst, c.wide[:c.length]...)
}
