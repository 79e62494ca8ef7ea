package trap

// InterruptHandler services one asynchronous trap.
type InterruptHandler func(code uint32)

// VectorTable maps interrupt cause codes to handlers. Slots that are
// unregistered, and codes beyond the table, go to the default handler.
type VectorTable struct {
	slots    []InterruptHandler
	fallback InterruptHandler
}

// NewVectorTable creates a table with size slots. A nil fallback is
// replaced by a handler that does nothing.
func NewVectorTable(size int, fallback InterruptHandler) *VectorTable {
	if fallback == nil {
		fallback = func(uint32) {}
	}
	return &VectorTable{
		slots:    make([]InterruptHandler, size),
		fallback: fallback,
	}
}

// Register installs h for code. It returns false if code is outside the
// table.
func (t *VectorTable) Register(code uint32, h InterruptHandler) bool {
	if uint64(code) >= uint64(len(t.slots)) {
		return false
	}
	t.slots[code] = h
	return true
}

// Lookup returns the handler for code, falling back to the default one.
func (t *VectorTable) Lookup(code uint32) InterruptHandler {
	if uint64(code) < uint64(len(t.slots)) {
		if h := t.slots[code]; h != nil {
			return h
		}
	}
	return t.fallback
}
