package vm_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"strand/internal/config"
	"strand/internal/symbols"
	"strand/internal/vm"
)

func smallExternalLimits() config.Limits {
	return config.Limits{
		HeapBytes:             1 << 20,
		ExternalMemoryBudget:  100,
		ExternalStringMinSize: 16,
		GCTriggerRatio:        0.85,
	}
}

func TestCollectSweepsUnrootedCells(t *testing.T) {
	rt := newTestRuntime(t, config.Default())

	garbage := mustNarrow(t, rt, "doomed value")
	kept := mustNarrow(t, rt, "kept value")
	rt.PushRoot(kept)
	defer rt.PopRoot()

	rt.Collect()

	if rt.Heap.Contains(garbage) {
		t.Error("unrooted cell survived a collection")
	}
	if !rt.Heap.Contains(kept) {
		t.Error("rooted cell was swept")
	}
	if !rt.Heap.Contains(rt.EmptyString()) {
		t.Error("empty-string singleton was swept")
	}
}

func TestCollectKeepsTenuredCells(t *testing.T) {
	rt := newTestRuntime(t, config.Default())
	ch, err := rt.GetCharacterString('q')
	if err != nil {
		t.Fatalf("GetCharacterString failed: %v", err)
	}
	rt.Collect()
	if !rt.Heap.Contains(ch) {
		t.Error("character-cache cell was swept")
	}
	again, err := rt.GetCharacterString('q')
	if err != nil {
		t.Fatalf("GetCharacterString failed: %v", err)
	}
	if again != ch {
		t.Errorf("character cache lost identity across a collection: %d vs %d", again, ch)
	}
}

func TestExternalLedgerTracksLiveBuffers(t *testing.T) {
	rt := newTestRuntime(t, config.Default())

	first := bytes.Repeat([]byte{'a'}, 150)
	kept, err := vm.CreateEfficientNarrowOwned(rt, &first)
	if err != nil {
		t.Fatalf("owned create failed: %v", err)
	}
	rt.PushRoot(kept)
	defer rt.PopRoot()

	second := bytes.Repeat([]byte{'b'}, 300)
	if _, err := vm.CreateEfficientNarrowOwned(rt, &second); err != nil {
		t.Fatalf("owned create failed: %v", err)
	}

	if got := rt.Heap.ExternalBytes(); got != 450 {
		t.Fatalf("ledger = %d before collection, want 450", got)
	}

	rt.Collect()

	if got := rt.Heap.ExternalBytes(); got != 150 {
		t.Errorf("ledger = %d after collection, want 150", got)
	}
	stats := rt.Heap.Stats()
	if stats.ExternalCredits != 2 || stats.ExternalDebits != 1 {
		t.Errorf("credits/debits = %d/%d, want 2/1", stats.ExternalCredits, stats.ExternalDebits)
	}

	var recorded uint64
	for _, rec := range rt.Heap.Snapshot().Records {
		recorded += uint64(rec.ExtBytes)
	}
	if recorded != rt.Heap.ExternalBytes() {
		t.Errorf("per-cell external bytes sum to %d, ledger says %d", recorded, rt.Heap.ExternalBytes())
	}
}

func TestLedgerBalancesWhenAllExternalsDie(t *testing.T) {
	rt := newTestRuntime(t, config.Default())
	for i := 0; i < 4; i++ {
		buf := bytes.Repeat([]byte{byte('a' + i)}, 200)
		if _, err := vm.CreateEfficientNarrowOwned(rt, &buf); err != nil {
			t.Fatalf("owned create failed: %v", err)
		}
	}
	rt.Collect()
	if got := rt.Heap.ExternalBytes(); got != 0 {
		t.Errorf("ledger = %d after all externals died, want 0", got)
	}
	stats := rt.Heap.Stats()
	if stats.ExternalCredits != stats.ExternalDebits {
		t.Errorf("credits = %d, debits = %d, want them equal", stats.ExternalCredits, stats.ExternalDebits)
	}
}

func TestOrdinaryExternalOverBudgetSucceedsAfterCollecting(t *testing.T) {
	rt := newTestRuntime(t, smallExternalLimits())

	storage := bytes.Repeat([]byte{'z'}, 200)
	h, err := vm.CreateEfficientNarrowOwned(rt, &storage)
	if err != nil {
		t.Fatalf("over-budget ordinary create failed: %v", err)
	}
	if !rt.Heap.Contains(h) {
		t.Fatal("freshly created cell was swept by its own budget-driven collection")
	}
	if got := rt.Heap.ExternalBytes(); got != 200 {
		t.Errorf("ledger = %d, want 200", got)
	}
	if rt.Heap.Stats().Collections == 0 {
		t.Error("going over budget did not trigger a collection")
	}
}

func TestLongLivedExternalAdmissionFailsOverBudget(t *testing.T) {
	rt := newTestRuntime(t, smallExternalLimits())

	storage := bytes.Repeat([]byte{'z'}, 200)
	_, _, err := vm.InternNarrowMoveIn(rt, &storage)
	if err == nil {
		t.Fatal("long-lived create over budget succeeded")
	}
	if err.Code != vm.FaultExternalBudget {
		t.Errorf("fault code = %v, want %v", err.Code, vm.FaultExternalBudget)
	}
	if storage == nil {
		t.Error("failed create retired the caller's storage")
	}
	if got := rt.Heap.ExternalBytes(); got != 0 {
		t.Errorf("failed create left %d bytes on the ledger", got)
	}
}

func TestHeapLimitExhaustion(t *testing.T) {
	rt := newTestRuntime(t, config.Limits{
		HeapBytes:             64,
		ExternalMemoryBudget:  1 << 20,
		ExternalStringMinSize: 128,
		GCTriggerRatio:        0.85,
	})

	_, err := vm.CreateEfficientNarrow(rt, bytes.Repeat([]byte{'a'}, 100))
	if err == nil {
		t.Fatal("allocation beyond the heap limit succeeded")
	}
	if err.Code != vm.FaultOutOfMemory {
		t.Errorf("fault code = %v, want %v", err.Code, vm.FaultOutOfMemory)
	}
}

func TestInternYieldsIdenticalObjectForEqualContent(t *testing.T) {
	rt := newTestRuntime(t, config.Default())

	first := mustNarrow(t, rt, "symbolic")
	rt.PushRoot(first)
	u1, id1, err := rt.Intern(first)
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	rt.PushRoot(u1)

	second := mustNarrow(t, rt, "symbolic")
	rt.PushRoot(second)
	u2, id2, err := rt.Intern(second)
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	defer rt.PopRoots(3)

	if first == second {
		t.Fatal("two anonymous creates returned the same handle")
	}
	if u1 != u2 {
		t.Errorf("interning equal content gave distinct objects: %d vs %d", u1, u2)
	}
	if id1 != id2 {
		t.Errorf("interning equal content gave distinct IDs: %v vs %v", id1, id2)
	}
	if !cellOf(rt, u1).IsUniqued() {
		t.Error("interned string is not uniqued")
	}

	resolved, ok := rt.UniquedString(id1)
	if !ok || resolved != u1 {
		t.Errorf("UniquedString(%v) = (%d, %v), want (%d, true)", id1, resolved, ok, u1)
	}

	again, id3, err := rt.Intern(u1)
	if err != nil {
		t.Fatalf("Intern of uniqued string failed: %v", err)
	}
	if again != u1 || id3 != id1 {
		t.Error("interning an already-uniqued string did not return it unchanged")
	}
}

func TestExternalInternBackPatchesInPlace(t *testing.T) {
	rt := newTestRuntime(t, config.Default())

	storage := bytes.Repeat([]byte{'w'}, 150)
	h, err := vm.CreateEfficientNarrowOwned(rt, &storage)
	if err != nil {
		t.Fatalf("owned create failed: %v", err)
	}
	rt.PushRoot(h)
	if cellOf(rt, h).IsUniqued() {
		t.Fatal("anonymous external is already uniqued")
	}

	uh, id, ierr := rt.Intern(h)
	if ierr != nil {
		t.Fatalf("Intern failed: %v", ierr)
	}
	if uh != h {
		t.Errorf("external intern copied instead of transferring: %d vs %d", uh, h)
	}
	cell := cellOf(rt, h)
	if !cell.IsUniqued() || cell.UniqueID() != id {
		t.Errorf("back-patch missing: uniqued=%v id=%v, want id %v", cell.IsUniqued(), cell.UniqueID(), id)
	}

	// The uniqued index is weak: once the cell dies, the symbol and the
	// canonical mapping go with it.
	rt.PopRoot()
	rt.Collect()
	if rt.Heap.Contains(h) {
		t.Error("dead uniqued external survived a collection")
	}
	if _, ok := rt.UniquedString(id); ok {
		t.Error("canonical mapping outlived its cell")
	}
	if _, _, ok := rt.Symbols.Lookup(id); ok {
		t.Error("symbol entry outlived its only string")
	}
}

func TestUniqueIDTransferIsOneTime(t *testing.T) {
	rt := newTestRuntime(t, config.Default())
	storage := bytes.Repeat([]byte{'v'}, 150)
	h, err := vm.CreateEfficientNarrowOwned(rt, &storage)
	if err != nil {
		t.Fatalf("owned create failed: %v", err)
	}
	rt.PushRoot(h)
	defer rt.PopRoot()
	if _, _, err := rt.Intern(h); err != nil {
		t.Fatalf("Intern failed: %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("second uniqueID transfer did not panic")
		}
	}()
	cellOf(rt, h).SetUniqueID(symbols.SymbolID(99))
}

func TestJSONTracerEmitsLifecycleEvents(t *testing.T) {
	rt := newTestRuntime(t, config.Default())
	var buf bytes.Buffer
	rt.Heap.SetTracer(vm.NewJSONTracer(&buf))

	mustNarrow(t, rt, "traced garbage")
	storage := bytes.Repeat([]byte{'t'}, 150)
	if _, err := vm.CreateEfficientNarrowOwned(rt, &storage); err != nil {
		t.Fatalf("owned create failed: %v", err)
	}
	rt.Collect()

	seen := map[string]int{}
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var event struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("trace line is not valid JSON: %v", err)
		}
		seen[event.Kind]++
	}
	for _, kind := range []string{"alloc", "free", "credit", "debit", "collect"} {
		if seen[kind] == 0 {
			t.Errorf("no %q event in trace output", kind)
		}
	}
}

func TestDumpStringListsLiveCells(t *testing.T) {
	rt := newTestRuntime(t, config.Default())
	h := mustNarrow(t, rt, "visible in dump")
	rt.PushRoot(h)
	defer rt.PopRoot()

	dump := rt.Heap.DumpString()
	if !strings.Contains(dump, "flat-narrow") {
		t.Errorf("dump does not name the flat-narrow shape:\n%s", dump)
	}
	if !strings.Contains(dump, "visible in dump") {
		t.Errorf("dump does not show the cell preview:\n%s", dump)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	rt := newTestRuntime(t, config.Default())
	h := mustNarrow(t, rt, "snapshot me")
	rt.PushRoot(h)
	storage := bytes.Repeat([]byte{'s'}, 150)
	eh, err := vm.CreateEfficientNarrowOwned(rt, &storage)
	if err != nil {
		t.Fatalf("owned create failed: %v", err)
	}
	rt.PushRoot(eh)
	defer rt.PopRoots(2)

	snap := rt.Heap.Snapshot()

	var buf bytes.Buffer
	if err := snap.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	got, rerr := vm.ReadSnapshot(&buf)
	if rerr != nil {
		t.Fatalf("ReadSnapshot failed: %v", rerr)
	}

	if got.UsedBytes != snap.UsedBytes || got.ExternalBytes != snap.ExternalBytes {
		t.Errorf("totals changed across the round trip: %+v vs %+v", got, snap)
	}
	if len(got.Records) != len(snap.Records) {
		t.Fatalf("record count = %d, want %d", len(got.Records), len(snap.Records))
	}
	for i := range got.Records {
		if got.Records[i] != snap.Records[i] {
			t.Errorf("record %d changed: %+v vs %+v", i, got.Records[i], snap.Records[i])
		}
	}
}
