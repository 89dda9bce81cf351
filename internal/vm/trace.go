package vm

import (
	"encoding/json"
	"io"
)

// CollectInfo summarizes one collection cycle.
type CollectInfo struct {
	Swept         int
	SymbolsSwept  int
	LiveCells     int
	UsedBytes     uint64
	ExternalBytes uint64
}

// HeapTracer receives heap lifecycle events. All methods are called on
// the runtime's single execution thread.
type HeapTracer interface {
	TraceHeapAlloc(handle Handle, cell *StringCell)
	TraceHeapFree(handle Handle)
	TraceExternalCredit(handle Handle, byteCount uint32)
	TraceExternalDebit(handle Handle, byteCount uint32)
	TraceCollect(info CollectInfo)
}

type traceEvent struct {
	Kind   string `json:"kind"`
	Handle uint32 `json:"handle,omitempty"`
	Shape  string `json:"shape,omitempty"`
	Len    uint32 `json:"len,omitempty"`
	Bytes  uint64 `json:"bytes,omitempty"`
	Swept  int    `json:"swept,omitempty"`
	Live   int    `json:"live,omitempty"`
}

// JSONTracer writes one JSON object per event, one per line.
type JSONTracer struct {
	enc *json.Encoder
}

// NewJSONTracer wraps a writer in a line-oriented tracer.
func NewJSONTracer(w io.Writer) *JSONTracer {
	return &JSONTracer{enc: json.NewEncoder(w)}
}

func (t *JSONTracer) TraceHeapAlloc(handle Handle, cell *StringCell) {
	_ = t.enc.Encode(traceEvent{
		Kind:   "alloc",
		Handle: uint32(handle),
		Shape:  Describe(cell).Shape,
		Len:    cell.Length(),
		Bytes:  uint64(cell.allocSize),
	})
}

func (t *JSONTracer) TraceHeapFree(handle Handle) {
	_ = t.enc.Encode(traceEvent{Kind: "free", Handle: uint32(handle)})
}

func (t *JSONTracer) TraceExternalCredit(handle Handle, byteCount uint32) {
	_ = t.enc.Encode(traceEvent{Kind: "credit", Handle: uint32(handle), Bytes: uint64(byteCount)})
}

func (t *JSONTracer) TraceExternalDebit(handle Handle, byteCount uint32) {
	_ = t.enc.Encode(traceEvent{Kind: "debit", Handle: uint32(handle), Bytes: uint64(byteCount)})
}

func (t *JSONTracer) TraceCollect(info CollectInfo) {
	_ = t.enc.Encode(traceEvent{
		Kind:  "collect",
		Swept: info.Swept,
		Live:  info.LiveCells,
		Bytes: info.UsedBytes,
	})
}
