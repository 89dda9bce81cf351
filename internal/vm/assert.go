//go:build !strandnodebug

package vm

// Debug builds keep internal consistency checks compiled in. Violations
// are programmer errors in a caller, never recoverable faults.
const debugBuild = true

func debugAssert(cond bool, msg string) {
	if !cond {
		panic("vm: assertion failed: " + msg)
	}
}
