package symbols

import (
	"encoding/binary"
	"fmt"

	"fortio.org/safecast"
	"github.com/cespare/xxhash/v2"
)

// entry is one interned string. Exactly one of narrow/wide is set; the
// table owns the backing storage. Hashing and equality operate on the
// widened code-unit sequence, so a narrow "foo" and a wide "foo" intern
// to the same SymbolID.
type entry struct {
	hash   uint64
	narrow []byte
	wide   []uint16
	used   bool
	marked bool
	pins   uint32
}

// Table stores interned strings in a compact slice-based arena with a
// hash index. IDs are stable for the lifetime of the entry; slots freed
// by Sweep are recycled through a free list.
type Table struct {
	entries []entry
	buckets map[uint64][]SymbolID
	free    []SymbolID
	live    int
}

// NewTable creates an empty intern table.
func NewTable() *Table {
	return &Table{
		entries: make([]entry, 1, 64), // index 0 reserved for NoSymbolID
		buckets: make(map[uint64][]SymbolID, 64),
	}
}

// Len reports the number of live entries.
func (t *Table) Len() int {
	return t.live
}

// InternNarrow ensures the narrow code-unit sequence has a stable SymbolID.
func (t *Table) InternNarrow(units []byte) SymbolID {
	h := hashNarrow(units)
	for _, id := range t.buckets[h] {
		if t.entryEqualsNarrow(id, units) {
			return id
		}
	}
	e := entry{hash: h, narrow: append([]byte(nil), units...), used: true}
	return t.insert(h, e)
}

// InternWide ensures the wide code-unit sequence has a stable SymbolID.
func (t *Table) InternWide(units []uint16) SymbolID {
	h := hashWide(units)
	for _, id := range t.buckets[h] {
		if t.entryEqualsWide(id, units) {
			return id
		}
	}
	e := entry{hash: h, wide: append([]uint16(nil), units...), used: true}
	return t.insert(h, e)
}

// Lookup returns the stored code units for an ID. Exactly one of the two
// returned slices is non-nil on success; callers must not mutate them.
func (t *Table) Lookup(id SymbolID) (narrow []byte, wide []uint16, ok bool) {
	if !id.IsValid() || int(id) >= len(t.entries) || !t.entries[id].used {
		return nil, nil, false
	}
	e := &t.entries[id]
	return e.narrow, e.wide, true
}

// BeginMark clears liveness marks before a collection cycle.
func (t *Table) BeginMark() {
	for i := range t.entries {
		t.entries[i].marked = false
	}
}

// MarkLive flags the entry as reachable during the current cycle.
// Invalid IDs are ignored so the collector can pass field values blindly.
func (t *Table) MarkLive(id SymbolID) {
	if !id.IsValid() || int(id) >= len(t.entries) {
		return
	}
	t.entries[id].marked = true
}

// Pin protects an entry from Sweep regardless of marks, for callers that
// hold a fresh SymbolID across an allocation that may collect. Pins nest.
func (t *Table) Pin(id SymbolID) {
	if !id.IsValid() || int(id) >= len(t.entries) {
		return
	}
	t.entries[id].pins++
}

// Unpin releases one Pin.
func (t *Table) Unpin(id SymbolID) {
	if !id.IsValid() || int(id) >= len(t.entries) {
		return
	}
	if t.entries[id].pins > 0 {
		t.entries[id].pins--
	}
}

// Sweep releases entries not marked since BeginMark and returns how many
// were released. Freed IDs are recycled for later interns.
func (t *Table) Sweep() int {
	released := 0
	for i := 1; i < len(t.entries); i++ {
		e := &t.entries[i]
		if !e.used || e.marked || e.pins > 0 {
			continue
		}
		t.removeFromBucket(e.hash, SymbolID(i))
		*e = entry{}
		t.free = append(t.free, SymbolID(i))
		t.live--
		released++
	}
	return released
}

func (t *Table) insert(h uint64, e entry) SymbolID {
	var id SymbolID
	if n := len(t.free); n > 0 {
		id = t.free[n-1]
		t.free = t.free[:n-1]
		t.entries[id] = e
	} else {
		raw, err := safecast.Conv[uint32](len(t.entries))
		if err != nil {
			panic(fmt.Errorf("symbols: table arena overflow: %w", err))
		}
		id = SymbolID(raw)
		t.entries = append(t.entries, e)
	}
	t.buckets[h] = append(t.buckets[h], id)
	t.live++
	return id
}

func (t *Table) removeFromBucket(h uint64, id SymbolID) {
	ids := t.buckets[h]
	for i, candidate := range ids {
		if candidate != id {
			continue
		}
		ids[i] = ids[len(ids)-1]
		ids = ids[:len(ids)-1]
		break
	}
	if len(ids) == 0 {
		delete(t.buckets, h)
		return
	}
	t.buckets[h] = ids
}

func (t *Table) entryEqualsNarrow(id SymbolID, units []byte) bool {
	e := &t.entries[id]
	if !e.used {
		return false
	}
	if e.narrow != nil {
		if len(e.narrow) != len(units) {
			return false
		}
		for i := range units {
			if e.narrow[i] != units[i] {
				return false
			}
		}
		return true
	}
	if len(e.wide) != len(units) {
		return false
	}
	for i := range units {
		if e.wide[i] != uint16(units[i]) {
			return false
		}
	}
	return true
}

func (t *Table) entryEqualsWide(id SymbolID, units []uint16) bool {
	e := &t.entries[id]
	if !e.used {
		return false
	}
	if e.wide != nil {
		if len(e.wide) != len(units) {
			return false
		}
		for i := range units {
			if e.wide[i] != units[i] {
				return false
			}
		}
		return true
	}
	if len(e.narrow) != len(units) {
		return false
	}
	for i := range units {
		if uint16(e.narrow[i]) != units[i] {
			return false
		}
	}
	return true
}

// hashNarrow and hashWide feed the widened unit sequence to xxhash two
// bytes at a time, so equal content hashes equally across encodings.
func hashNarrow(units []byte) uint64 {
	d := xxhash.New()
	var buf [2]byte
	for _, u := range units {
		binary.LittleEndian.PutUint16(buf[:], uint16(u))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func hashWide(units []uint16) uint64 {
	d := xxhash.New()
	var buf [2]byte
	for _, u := range units {
		binary.LittleEndian.PutUint16(buf[:], u)
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
