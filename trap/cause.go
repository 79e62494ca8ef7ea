package trap

import (
	"fmt"

	"github.com/sarchlab/rvtrap/emu"
)

// Cause is a decoded mcause value.
type Cause struct {
	Interrupt bool
	Code      uint32
}

// DecodeCause splits a raw mcause into the interrupt flag and code.
func DecodeCause(mcause uint32) Cause {
	return Cause{
		Interrupt: mcause&emu.MCauseInterrupt != 0,
		Code:      mcause & emu.MCauseCodeMask,
	}
}

// IsMisalignedAccess reports whether c is one of the three exceptions the
// emulators handle: instruction, load or store address misaligned.
func (c Cause) IsMisalignedAccess() bool {
	if c.Interrupt {
		return false
	}
	switch c.Code {
	case emu.CauseInstructionMisaligned, emu.CauseLoadMisaligned, emu.CauseStoreMisaligned:
		return true
	}
	return false
}

func (c Cause) String() string {
	if c.Interrupt {
		return fmt.Sprintf("interrupt %d", c.Code)
	}
	switch c.Code {
	case emu.CauseInstructionMisaligned:
		return "instruction address misaligned"
	case emu.CauseIllegalInstruction:
		return "illegal instruction"
	case emu.CauseLoadMisaligned:
		return "load address misaligned"
	case emu.CauseStoreMisaligned:
		return "store address misaligned"
	}
	return fmt.Sprintf("exception %d", c.Code)
}

// Snapshot is the privilege state at trap time.
type Snapshot struct {
	// Previous is the privilege level the trapped code ran at (mstatus.MPP).
	Previous emu.Privilege
	// Translation is the active address-translation mode (satp.MODE).
	Translation emu.TranslationMode
}

// DecodeStatus extracts the privilege snapshot from raw mstatus and satp.
func DecodeStatus(mstatus, satp uint32) Snapshot {
	return Snapshot{
		Previous:    emu.Privilege((mstatus & emu.MStatusMPPMask) >> emu.MStatusMPPShift),
		Translation: emu.TranslationMode(satp >> emu.SATPModeShift),
	}
}

// NeedsTranslation reports whether addresses seen by the trapped code
// would have to be walked through page tables: it ran below machine mode
// with a translation mode other than bare.
func (s Snapshot) NeedsTranslation() bool {
	return s.Previous != emu.PrivMachine && s.Translation != emu.TranslationBare
}
