package vm

import "math"

// AddUint32Checked returns (a+b, ok). ok is false on overflow.
func AddUint32Checked(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}

// MulUint32Checked returns (a*b, ok). ok is false on overflow.
func MulUint32Checked(a, b uint32) (uint32, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	if a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}
