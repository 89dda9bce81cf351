package vm

import (
	"fmt"
	"io"
	"sort"

	"github.com/vmihailenco/msgpack/v5"
)

// SnapshotRecord is the serialized form of one live cell.
type SnapshotRecord struct {
	Handle    uint32 `msgpack:"handle"`
	Shape     string `msgpack:"shape"`
	Narrow    bool   `msgpack:"narrow"`
	Uniqued   bool   `msgpack:"uniqued"`
	Tenured   bool   `msgpack:"tenured"`
	Length    uint32 `msgpack:"len"`
	HeapBytes uint32 `msgpack:"heap_bytes"`
	ExtBytes  uint32 `msgpack:"ext_bytes"`
}

// HeapSnapshot is a point-in-time serializable view of the heap,
// suitable for offline inspection and diffing between runs.
type HeapSnapshot struct {
	UsedBytes     uint64           `msgpack:"used_bytes"`
	ExternalBytes uint64           `msgpack:"external_bytes"`
	Collections   uint64           `msgpack:"collections"`
	Records       []SnapshotRecord `msgpack:"records"`
}

// Snapshot captures all live cells in handle order.
func (h *Heap) Snapshot() HeapSnapshot {
	records := make([]SnapshotRecord, 0, len(h.cells))
	for handle, cell := range h.cells {
		records = append(records, SnapshotRecord{
			Handle:    uint32(handle),
			Shape:     Describe(cell).Shape,
			Narrow:    cell.IsNarrow(),
			Uniqued:   cell.IsUniqued(),
			Tenured:   cell.tenured,
			Length:    cell.length,
			HeapBytes: cell.allocSize,
			ExtBytes:  cell.externalBytes,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Handle < records[j].Handle })
	return HeapSnapshot{
		UsedBytes:     h.usedBytes,
		ExternalBytes: h.externalBytes,
		Collections:   h.counters.collections,
		Records:       records,
	}
}

// WriteTo serializes the snapshot as msgpack.
func (s HeapSnapshot) WriteTo(w io.Writer) error {
	if err := msgpack.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("failed to encode heap snapshot: %w", err)
	}
	return nil
}

// ReadSnapshot deserializes a snapshot written by WriteTo.
func ReadSnapshot(r io.Reader) (HeapSnapshot, error) {
	var s HeapSnapshot
	if err := msgpack.NewDecoder(r).Decode(&s); err != nil {
		return HeapSnapshot{}, fmt.Errorf("failed to decode heap snapshot: %w", err)
	}
	return s, nil
}
