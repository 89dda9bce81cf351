package vm

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf16"

	"github.com/mattn/go-runewidth"
)

const dumpPreviewWidth = 24

type heapDumpRecord struct {
	handle    Handle
	shape     string
	length    uint32
	heapBytes uint32
	extBytes  uint32
	tenured   bool
	preview   string
}

// String decodes the cell's content into a Go string, widening narrow
// units losslessly.
func (c *StringCell) String() string {
	if c.IsNarrow() {
		runes := make([]rune, c.length)
		for i := uint32(0); i < c.length; i++ {
			runes[i] = rune(c.narrow[i])
		}
		return string(runes)
	}
	return string(utf16.Decode(c.wide[:c.length]))
}

// DumpString renders the live heap as a sorted table, one row per cell.
// Returns "" for an empty heap.
func (h *Heap) DumpString() string {
	records := make([]heapDumpRecord, 0, len(h.cells))
	for handle := Handle(1); handle < h.next; handle++ {
		cell, ok := h.cells[handle]
		if !ok {
			continue
		}
		records = append(records, heapDumpRecord{
			handle:    handle,
			shape:     Describe(cell).Shape,
			length:    cell.length,
			heapBytes: cell.allocSize,
			extBytes:  cell.externalBytes,
			tenured:   cell.tenured,
			preview:   runewidth.Truncate(cell.String(), dumpPreviewWidth, "…"),
		})
	}
	if len(records) == 0 {
		return ""
	}

	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if a.shape != b.shape {
			return a.shape < b.shape
		}
		return a.handle < b.handle
	})

	var sb strings.Builder
	sb.WriteString("handle  shape                 len      heap   ext  tenured  preview\n")
	for _, r := range records {
		tenured := "-"
		if r.tenured {
			tenured = "yes"
		}
		fmt.Fprintf(&sb, "%6d  %-20s %5d  %8d  %4d  %-7s  %q\n",
			r.handle, r.shape, r.length, r.heapBytes, r.extBytes, tenured, r.preview)
	}
	stats := h.Stats()
	fmt.Fprintf(&sb, "live=%d used=%d external=%d allocs=%d frees=%d collections=%d\n",
		stats.LiveCells, stats.UsedBytes, stats.ExternalBytes,
		stats.AllocCount, stats.FreeCount, stats.Collections)
	return sb.String()
}
