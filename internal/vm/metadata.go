package vm

// Trace metadata is declarative: each concrete string shape publishes
// which of its fields the collector must visit. Inline character payload
// is opaque, non-traced bytes, so anonymous shapes trace nothing; uniqued
// shapes trace exactly the uniqueID field. External shapes additionally
// require finalization so the ledger is debited before the buffer drops.

// TraceFieldKind identifies how the collector interprets a traced field.
type TraceFieldKind uint8

const (
	// TraceFieldSymbol marks a symbols.SymbolID field live in the intern
	// table during the mark phase.
	TraceFieldSymbol TraceFieldKind = iota
)

// TraceField is one collector-visible field of a shape.
type TraceField struct {
	Kind TraceFieldKind
	Name string
}

// TraceDescriptor describes one concrete shape to the collector.
type TraceDescriptor struct {
	Shape        string
	HasFinalizer bool
	Fields       []TraceField
}

var uniqueIDField = []TraceField{{Kind: TraceFieldSymbol, Name: "uniqueID"}}

var traceDescriptors = map[StringKind][2]TraceDescriptor{
	// Index 0: anonymous, index 1: uniqued.
	StringFlatNarrow: {
		{Shape: "flat-narrow"},
		{Shape: "flat-narrow-uniqued", Fields: uniqueIDField},
	},
	StringFlatWide: {
		{Shape: "flat-wide"},
		{Shape: "flat-wide-uniqued", Fields: uniqueIDField},
	},
	StringExternalNarrow: {
		{Shape: "ext-narrow", HasFinalizer: true},
		{Shape: "ext-narrow-uniqued", HasFinalizer: true, Fields: uniqueIDField},
	},
	StringExternalWide: {
		{Shape: "ext-wide", HasFinalizer: true},
		{Shape: "ext-wide-uniqued", HasFinalizer: true, Fields: uniqueIDField},
	},
}

// Describe returns the collector descriptor for the cell's shape.
func Describe(c *StringCell) TraceDescriptor {
	idx := 0
	if c.uniqued {
		idx = 1
	}
	return traceDescriptors[c.kind][idx]
}
