package vm

// StringBuilder fills a freshly allocated string of known length in
// place and yields the finished value exactly once. Short results go
// into flat storage; results at or above the external threshold go into
// an external zero-filled buffer.
//
// A builder created with the narrow hint re-allocates into wide storage
// the first time it sees a unit outside the narrow range, widening the
// prefix already written. The builder roots its product cell itself, so
// callers only need to root their own operands.
type StringBuilder struct {
	rt     *Runtime
	handle Handle
	cell   *StringCell
	pos    uint32
	done   bool
}

// NewStringBuilder requests a builder for a string of exactly length
// units. narrowHint should be set iff every unit to be appended is known
// to be narrow-representable. Fails when length exceeds the maximum or
// the backing allocation cannot be made.
func NewStringBuilder(rt *Runtime, length uint32, narrowHint bool) (*StringBuilder, *RuntimeError) {
	if length > MaxStringLength {
		return nil, errStringTooLong(uint64(length))
	}
	var handle Handle
	var err *RuntimeError
	if length >= rt.limits.ExternalStringMinSize {
		handle, err = newExternalZeroed(rt, length, narrowHint)
	} else {
		handle, err = newFlatZeroed(rt, length, narrowHint)
	}
	if err != nil {
		return nil, err
	}
	rt.PushRoot(handle)
	return &StringBuilder{rt: rt, handle: handle, cell: rt.Heap.Get(handle)}, nil
}

// AppendUnit writes one code unit. A wide unit appended to a narrow
// builder triggers the one-time widening re-allocation.
func (b *StringBuilder) AppendUnit(u uint16) *RuntimeError {
	debugAssert(!b.done, "append after Product")
	debugAssert(b.pos < b.cell.length, "builder overflow")
	if b.cell.IsNarrow() {
		if u > maxNarrowUnit {
			if err := b.widen(); err != nil {
				return err
			}
		} else {
			b.cell.narrow[b.pos] = byte(u)
			b.pos++
			return nil
		}
	}
	b.cell.wide[b.pos] = u
	b.pos++
	return nil
}

// AppendNarrow bulk-copies narrow units.
func (b *StringBuilder) AppendNarrow(units []byte) {
	assertNarrowUnits(units)
	debugAssert(!b.done, "append after Product")
	debugAssert(uint64(b.pos)+uint64(len(units)) <= uint64(b.cell.length), "builder overflow")
	if b.cell.IsNarrow() {
		copy(b.cell.narrow[b.pos:], units)
		b.pos += uint32(len(units))
		return
	}
	for _, u := range units {
		b.cell.wide[b.pos] = uint16(u)
		b.pos++
	}
}

// AppendWide bulk-copies wide units, widening the builder first if needed.
func (b *StringBuilder) AppendWide(units []uint16) *RuntimeError {
	debugAssert(!b.done, "append after Product")
	debugAssert(uint64(b.pos)+uint64(len(units)) <= uint64(b.cell.length), "builder overflow")
	if b.cell.IsNarrow() {
		if err := b.widen(); err != nil {
			return err
		}
	}
	copy(b.cell.wide[b.pos:], units)
	b.pos += uint32(len(units))
	return nil
}

// AppendStringCell copies the whole of another string value. The source
// cell must be rooted by the caller if it has to survive further
// allocations; the append itself only allocates on the widening path.
func (b *StringBuilder) AppendStringCell(c *StringCell) *RuntimeError {
	if c.IsNarrow() {
		b.AppendNarrow(c.narrow[:c.length])
		return nil
	}
	return b.AppendWide(c.wide[:c.length])
}

// widen re-allocates the product as a wide string of the same storage
// class and copies the already-written prefix, widened. The narrow cell
// becomes garbage and is reclaimed by a later cycle.
func (b *StringBuilder) widen() *RuntimeError {
	var handle Handle
	var err *RuntimeError
	if b.cell.IsExternal() {
		handle, err = newExternalZeroed(b.rt, b.cell.length, false)
	} else {
		handle, err = newFlatZeroed(b.rt, b.cell.length, false)
	}
	if err != nil {
		return err
	}
	wide := b.rt.Heap.Get(handle)
	for i := uint32(0); i < b.pos; i++ {
		wide.wide[i] = uint16(b.cell.narrow[i])
	}
	// Swap the builder's root to the wide product.
	b.rt.PopRoot()
	b.rt.PushRoot(handle)
	b.handle = handle
	b.cell = wide
	return nil
}

// Abandon releases the builder's root without yielding a product, for
// callers bailing out after a failed append. The partially filled cell
// becomes garbage.
func (b *StringBuilder) Abandon() {
	if b.done {
		return
	}
	b.done = true
	b.rt.PopRoot()
}

// Product returns the finished string and releases the builder's root.
// The builder must have been filled to exactly its requested length.
func (b *StringBuilder) Product() Handle {
	debugAssert(!b.done, "Product called twice")
	debugAssert(b.pos == b.cell.length, "builder not filled completely")
	b.done = true
	b.rt.PopRoot()
	return b.handle
}
