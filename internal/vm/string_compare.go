package vm

import "bytes"

// Comparison and equality are implemented once over the UnitAt accessor
// and therefore work across all four encoding combinations; same-encoding
// pairs take byte-wise fast paths. No comparison allocates.

// Equals reports code-unit equality. Reflexive by identity before any
// content comparison.
func (c *StringCell) Equals(other *StringCell) bool {
	if c == other {
		return true
	}
	if c.length != other.length {
		return false
	}
	return c.SliceEquals(0, c.length, other)
}

// SliceEquals compares the [start, start+length) sub-range of c against
// the whole of other. start+length <= c.Length() is the caller's
// invariant.
func (c *StringCell) SliceEquals(start, length uint32, other *StringCell) bool {
	debugAssert(uint64(start)+uint64(length) <= uint64(c.length), "slice range out of bounds")
	if length != other.length {
		return false
	}
	if c.IsNarrow() && other.IsNarrow() {
		return bytes.Equal(c.narrow[start:start+length], other.narrow[:length])
	}
	for i := uint32(0); i < length; i++ {
		if c.UnitAt(start+i) != other.UnitAt(i) {
			return false
		}
	}
	return true
}

// Compare orders lexicographically by code-unit value: -1, 0, or 1.
// Consistent with Equals; a matching prefix sorts the shorter string
// first.
func (c *StringCell) Compare(other *StringCell) int {
	if c == other {
		return 0
	}
	if c.IsNarrow() && other.IsNarrow() {
		return bytes.Compare(c.narrow[:c.length], other.narrow[:other.length])
	}
	n := c.length
	if other.length < n {
		n = other.length
	}
	for i := uint32(0); i < n; i++ {
		a, b := c.UnitAt(i), other.UnitAt(i)
		if a != b {
			if a < b {
				return -1
			}
			return 1
		}
	}
	switch {
	case c.length < other.length:
		return -1
	case c.length > other.length:
		return 1
	default:
		return 0
	}
}
