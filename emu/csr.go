package emu

// Privilege is an RV32 privilege level as encoded in mstatus.MPP.
type Privilege uint8

// Privilege levels.
const (
	PrivUser       Privilege = 0
	PrivSupervisor Privilege = 1
	PrivMachine    Privilege = 3
)

func (p Privilege) String() string {
	switch p {
	case PrivUser:
		return "user"
	case PrivSupervisor:
		return "supervisor"
	case PrivMachine:
		return "machine"
	}
	return "reserved"
}

// TranslationMode is the satp.MODE setting.
type TranslationMode uint8

// Translation modes available on RV32.
const (
	TranslationBare TranslationMode = 0
	TranslationSv32 TranslationMode = 1
)

func (m TranslationMode) String() string {
	if m == TranslationBare {
		return "bare"
	}
	return "sv32"
}

// Raw CSR layout.
const (
	// MCauseInterrupt is the interrupt flag of mcause.
	MCauseInterrupt uint32 = 1 << 31
	// MCauseCodeMask selects the cause code of mcause.
	MCauseCodeMask uint32 = MCauseInterrupt - 1

	// MStatusMPPShift is the position of mstatus.MPP (bits 12:11).
	MStatusMPPShift = 11
	// MStatusMPPMask selects mstatus.MPP.
	MStatusMPPMask uint32 = 0x3 << MStatusMPPShift

	// SATPModeShift is the position of satp.MODE (bit 31).
	SATPModeShift = 31
)

// Exception cause codes.
const (
	CauseInstructionMisaligned uint32 = 0
	CauseIllegalInstruction    uint32 = 2
	CauseLoadMisaligned        uint32 = 4
	CauseStoreMisaligned       uint32 = 6
	CauseEnvCallFromM          uint32 = 11
)

// Interrupt cause codes.
const (
	InterruptMachineSoftware uint32 = 3
	InterruptMachineTimer    uint32 = 7
	InterruptMachineExternal uint32 = 11
)

// ComposeMCause builds a raw mcause value.
func ComposeMCause(interrupt bool, code uint32) uint32 {
	v := code & MCauseCodeMask
	if interrupt {
		v |= MCauseInterrupt
	}
	return v
}

// ComposeMStatus builds a raw mstatus value carrying only MPP.
func ComposeMStatus(previous Privilege) uint32 {
	return (uint32(previous) << MStatusMPPShift) & MStatusMPPMask
}

// ComposeSATP builds a raw satp value carrying only MODE.
func ComposeSATP(mode TranslationMode) uint32 {
	return uint32(mode&1) << SATPModeShift
}
