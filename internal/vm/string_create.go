package vm

import (
	"unicode/utf16"

	"strand/internal/symbols"
)

// The construction policy ("efficient create") decides which concrete
// shape a requested code-unit sequence gets. Ordering is load-bearing:
// the singleton checks come first so the two most common short-string
// cases never allocate, then the ownership-transfer opportunity, then the
// encoding choice for the copy path. Policy decisions never fail; only
// the allocation they delegate to can.

// CreateEfficientNarrow builds a string from narrow units, copying them.
func CreateEfficientNarrow(rt *Runtime, units []byte) (Handle, *RuntimeError) {
	return createEfficientNarrow(rt, units, nil)
}

// CreateEfficientNarrowOwned is the move-enabled variant: when the
// sequence is long enough for external storage, ownership of *storage is
// transferred into the new value without copying and *storage is retired.
func CreateEfficientNarrowOwned(rt *Runtime, storage *[]byte) (Handle, *RuntimeError) {
	return createEfficientNarrow(rt, *storage, storage)
}

// CreateEfficientWide builds a string from wide units, copying them and
// narrowing the representation when every unit fits the narrow range.
func CreateEfficientWide(rt *Runtime, units []uint16) (Handle, *RuntimeError) {
	return createEfficientWide(rt, units, nil)
}

// CreateEfficientWideOwned is the move-enabled wide variant.
func CreateEfficientWideOwned(rt *Runtime, storage *[]uint16) (Handle, *RuntimeError) {
	return createEfficientWide(rt, *storage, storage)
}

func createEfficientNarrow(rt *Runtime, units []byte, optStorage *[]byte) (Handle, *RuntimeError) {
	assertNarrowUnits(units)
	if len(units) == 0 {
		return rt.EmptyString(), nil
	}
	if len(units) == 1 {
		return rt.GetCharacterString(uint16(units[0]))
	}
	if optStorage != nil && uint64(len(units)) >= uint64(rt.limits.ExternalStringMinSize) {
		return newExternalNarrowMoveIn(rt, optStorage, false)
	}
	return newFlatNarrow(rt, units, symbols.NoSymbolID, false)
}

func createEfficientWide(rt *Runtime, units []uint16, optStorage *[]uint16) (Handle, *RuntimeError) {
	if len(units) == 0 {
		return rt.EmptyString(), nil
	}
	if len(units) == 1 {
		return rt.GetCharacterString(units[0])
	}
	if optStorage != nil && uint64(len(units)) >= uint64(rt.limits.ExternalStringMinSize) {
		return newExternalWideMoveIn(rt, optStorage, false)
	}
	if allNarrow(units) {
		narrow := make([]byte, len(units))
		for i, u := range units {
			narrow[i] = byte(u)
		}
		return newFlatNarrow(rt, narrow, symbols.NoSymbolID, false)
	}
	return newFlatWide(rt, units, symbols.NoSymbolID, false)
}

func allNarrow(units []uint16) bool {
	for _, u := range units {
		if u > maxNarrowUnit {
			return false
		}
	}
	return true
}

// CreateFromUTF8 decodes source text into code units and routes the
// result through the construction policy, adopting the decoded buffer
// when it is long enough for external storage.
func CreateFromUTF8(rt *Runtime, s string) (Handle, *RuntimeError) {
	narrow := true
	for _, r := range s {
		if r > maxNarrowUnit {
			narrow = false
			break
		}
	}
	if narrow {
		// ASCII text: the UTF-8 bytes are the code units.
		units := []byte(s)
		return createEfficientNarrow(rt, units, &units)
	}
	units := utf16.Encode([]rune(s))
	return createEfficientWide(rt, units, &units)
}

// Concat builds x+y. An empty operand returns the other operand itself,
// not a copy. The result is narrow iff both operands are narrow. Both
// operands remain independently usable afterwards.
func Concat(rt *Runtime, x, y Handle) (Handle, *RuntimeError) {
	xc := rt.Heap.Get(x)
	yc := rt.Heap.Get(y)
	if xc.length == 0 {
		return y, nil
	}
	if yc.length == 0 {
		return x, nil
	}

	sum, ok := AddUint32Checked(xc.length, yc.length)
	if !ok || sum > MaxStringLength {
		return 0, errStringTooLong(uint64(xc.length) + uint64(yc.length))
	}

	rt.PushRoot(x)
	rt.PushRoot(y)
	defer rt.PopRoots(2)

	b, err := NewStringBuilder(rt, sum, xc.IsNarrow() && yc.IsNarrow())
	if err != nil {
		return 0, err
	}
	if err := b.AppendStringCell(xc); err != nil {
		b.Abandon()
		return 0, err
	}
	if err := b.AppendStringCell(yc); err != nil {
		b.Abandon()
		return 0, err
	}
	return b.Product(), nil
}

// Slice copies the [start, start+length) sub-range of s into a new
// independent string; storage is never shared with the source.
// start+length <= s.Length() is the caller's invariant.
func Slice(rt *Runtime, s Handle, start, length uint32) (Handle, *RuntimeError) {
	sc := rt.Heap.Get(s)
	debugAssert(uint64(start)+uint64(length) <= uint64(sc.length), "slice range out of bounds")

	rt.PushRoot(s)
	defer rt.PopRoot()

	b, err := NewStringBuilder(rt, length, sc.IsNarrow())
	if err != nil {
		return 0, err
	}
	if sc.IsNarrow() {
		b.AppendNarrow(sc.narrow[start : start+length])
	} else if err := b.AppendWide(sc.wide[start : start+length]); err != nil {
		b.Abandon()
		return 0, err
	}
	return b.Product(), nil
}
