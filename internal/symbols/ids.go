package symbols

// SymbolID is a stable identifier for an interned string.
// SymbolID(0) is always invalid.
type SymbolID uint32

// NoSymbolID is the invalid sentinel.
const NoSymbolID SymbolID = 0

// IsValid reports whether the ID refers to a real table entry.
func (id SymbolID) IsValid() bool {
	return id != NoSymbolID
}
