package vm

import (
	"testing"

	"strand/internal/config"
	"strand/internal/symbols"
)

func newViewRuntime(t *testing.T) *Runtime {
	t.Helper()
	rt, err := NewRuntime(config.Default())
	if err != nil {
		t.Fatalf("NewRuntime failed: %v", err)
	}
	return rt
}

func TestViewSharesUnderlyingStorage(t *testing.T) {
	rt := newViewRuntime(t)
	h, err := newFlatNarrow(rt, []byte("window"), symbols.NoSymbolID, false)
	if err != nil {
		t.Fatalf("newFlatNarrow failed: %v", err)
	}
	cell := rt.Heap.Get(h)

	v := CreateView(rt, h)
	got := v.NarrowBytes()
	if len(got) != len(cell.narrow) || &got[0] != &cell.narrow[0] {
		t.Error("NarrowBytes copied instead of aliasing the payload")
	}
	if v.WideUnits() != nil {
		t.Error("WideUnits is non-nil for a narrow string")
	}
	if v.Length() != 6 || !v.IsNarrow() {
		t.Errorf("view reports length=%d narrow=%v, want 6/true", v.Length(), v.IsNarrow())
	}
	if v.UnitAt(1) != 'i' {
		t.Errorf("UnitAt(1) = %#x, want 'i'", v.UnitAt(1))
	}
}

func TestViewWideStorage(t *testing.T) {
	rt := newViewRuntime(t)
	h, err := newFlatWide(rt, []uint16{0x3B1, 0x3B2}, symbols.NoSymbolID, false)
	if err != nil {
		t.Fatalf("newFlatWide failed: %v", err)
	}
	cell := rt.Heap.Get(h)

	v := CreateView(rt, h)
	got := v.WideUnits()
	if len(got) != 2 || &got[0] != &cell.wide[0] {
		t.Error("WideUnits copied instead of aliasing the payload")
	}
	if v.NarrowBytes() != nil {
		t.Error("NarrowBytes is non-nil for a wide string")
	}
}

func TestCopyUTF16WidensNarrowUnits(t *testing.T) {
	rt := newViewRuntime(t)
	h, err := newFlatNarrow(rt, []byte("hi"), symbols.NoSymbolID, false)
	if err != nil {
		t.Fatalf("newFlatNarrow failed: %v", err)
	}
	cell := rt.Heap.Get(h)

	dst := make([]uint16, cell.Length())
	cell.CopyUTF16Into(dst)
	if dst[0] != 'h' || dst[1] != 'i' {
		t.Errorf("CopyUTF16Into produced %v, want [h i]", dst)
	}

	appended := cell.AppendUTF16([]uint16{'>'})
	if len(appended) != 3 || appended[0] != '>' || appended[2] != 'i' {
		t.Errorf("AppendUTF16 produced %v", appended)
	}
}

func TestUnitAtWidensAcrossEncodings(t *testing.T) {
	rt := newViewRuntime(t)
	narrow, err := newFlatNarrow(rt, []byte{'A'}, symbols.NoSymbolID, false)
	if err != nil {
		t.Fatalf("newFlatNarrow failed: %v", err)
	}
	wide, werr := newFlatWide(rt, []uint16{'A'}, symbols.NoSymbolID, false)
	if werr != nil {
		t.Fatalf("newFlatWide failed: %v", werr)
	}
	if rt.Heap.Get(narrow).UnitAt(0) != rt.Heap.Get(wide).UnitAt(0) {
		t.Error("UnitAt differs for the same unit across encodings")
	}
}

func TestFlatAllocationSizeAccountsForShape(t *testing.T) {
	anon, ok := flatAllocationSize(10, true, false)
	if !ok {
		t.Fatal("size computation failed")
	}
	uniqued, ok := flatAllocationSize(10, true, true)
	if !ok {
		t.Fatal("size computation failed")
	}
	if uniqued != anon+uniquedFieldBytes {
		t.Errorf("uniqued shape = %d bytes, want %d more than anonymous %d",
			uniqued, uniquedFieldBytes, anon)
	}
	wide, ok := flatAllocationSize(10, false, false)
	if !ok {
		t.Fatal("size computation failed")
	}
	if wide != anon+10 {
		t.Errorf("wide shape = %d bytes, want narrow %d plus one extra byte per unit", wide, anon)
	}

	if _, ok := flatAllocationSize(^uint32(0), false, false); ok {
		t.Error("size computation did not report overflow")
	}
}
