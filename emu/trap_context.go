package emu

// TrapContext is the machine state handed to a trap handler: the saved
// register file, the raw trap CSRs, and the word port the handler may use.
// The handler owns Regs exclusively until it returns.
type TrapContext struct {
	Regs *RegFile
	Mem  WordPort

	MCause  uint32
	MStatus uint32
	SATP    uint32
	MEPC    uint32
	MTVAL   uint32
}

// TrapHandler handles a trap and returns the PC to resume at.
// A non-nil error is terminal: the hart stops permanently.
type TrapHandler interface {
	HandleTrap(tc *TrapContext) (uint32, error)
}

// TrapHandlerFunc adapts a function to TrapHandler.
type TrapHandlerFunc func(tc *TrapContext) (uint32, error)

// HandleTrap calls f(tc).
func (f TrapHandlerFunc) HandleTrap(tc *TrapContext) (uint32, error) {
	return f(tc)
}

// countingPort counts the word accesses a trap handler performs.
type countingPort struct {
	WordPort
	reads  uint64
	writes uint64
}

func (p *countingPort) ReadWord(addr uint32) uint32 {
	p.reads++
	return p.WordPort.ReadWord(addr)
}

func (p *countingPort) WriteWord(addr uint32, value uint32) {
	p.writes++
	p.WordPort.WriteWord(addr, value)
}
