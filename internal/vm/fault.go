package vm

import "fmt"

// FaultCode identifies a recoverable runtime fault.
type FaultCode int

// Stable fault codes - do not change values.
const (
	FaultStringTooLong  FaultCode = 2001 // RT2001: string length exceeds limit
	FaultOutOfMemory    FaultCode = 2002 // RT2002: heap allocation failed
	FaultExternalBudget FaultCode = 2003 // RT2003: external-memory budget exhausted
)

// String returns the code as "RT2001" format.
func (c FaultCode) String() string {
	return fmt.Sprintf("RT%d", c)
}

// DebugEnabled reports whether programmer-error assertions are compiled
// in. Release builds disable them with the strandnodebug build tag.
func DebugEnabled() bool {
	return debugBuild
}

// RuntimeError is a recoverable fault surfaced to the caller. Unlike
// programmer errors (which are debug assertions), a RuntimeError is part
// of the normal control flow: callers are expected to catch and handle it.
type RuntimeError struct {
	Code    FaultCode
	Message string
}

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("fault %s: %s", e.Code, e.Message)
}

func errStringTooLong(length uint64) *RuntimeError {
	return &RuntimeError{
		Code:    FaultStringTooLong,
		Message: fmt.Sprintf("string length %d exceeds limit %d", length, MaxStringLength),
	}
}

func errOutOfMemory(byteSize uint32, limit uint64) *RuntimeError {
	return &RuntimeError{
		Code:    FaultOutOfMemory,
		Message: fmt.Sprintf("cannot allocate %d bytes: heap limit %d exceeded", byteSize, limit),
	}
}

func errExternalBudget(byteSize uint64, budget uint64) *RuntimeError {
	return &RuntimeError{
		Code:    FaultExternalBudget,
		Message: fmt.Sprintf("cannot allocate %d external bytes: budget %d exceeded", byteSize, budget),
	}
}
