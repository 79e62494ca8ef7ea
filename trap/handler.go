// Package trap is the machine-mode trap layer for a target whose memory
// refuses misaligned word accesses.
//
// Misaligned load and store exceptions are decoded and emulated with
// aligned 32-bit word accesses only; the result is written back to the
// saved register file and execution resumes after the faulting
// instruction. Every other exception, and every condition that cannot be
// emulated, ends in a Halt error. A halted core needs an external reset.
//
// Interrupts are routed to an injected VectorTable and resume at the
// interrupted PC.
package trap

import (
	"errors"

	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/insts"
)

// Frame is the exception state the dispatcher works on.
type Frame struct {
	Regs   *emu.RegFile
	Mem    emu.WordPort
	Status Snapshot
	Code   uint32
	PC     uint32
	// TVal holds the faulting instruction word as written to mtval.
	TVal uint32
}

// Handler classifies traps and dispatches misaligned accesses to the
// emulators. It implements emu.TrapHandler.
type Handler struct {
	vectors     *VectorTable
	fetchFromPC bool
}

// HandlerOption is a functional option for configuring the Handler.
type HandlerOption func(*Handler)

// WithVectorTable routes interrupts through vt. Without a table every
// interrupt halts with ErrUnsupportedCause.
func WithVectorTable(vt *VectorTable) HandlerOption {
	return func(h *Handler) {
		h.vectors = vt
	}
}

// WithInstructionFetch makes the handler read the faulting instruction
// from memory at the faulting PC instead of taking it from mtval.
func WithInstructionFetch() HandlerOption {
	return func(h *Handler) {
		h.fetchFromPC = true
	}
}

// NewHandler creates a trap handler.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// HandleTrap decodes the raw trap CSRs in tc and dispatches on the cause.
func (h *Handler) HandleTrap(tc *emu.TrapContext) (uint32, error) {
	cause := DecodeCause(tc.MCause)
	if cause.Interrupt {
		return h.HandleInterrupt(cause.Code, tc.MEPC)
	}

	return h.HandleException(&Frame{
		Regs:   tc.Regs,
		Mem:    tc.Mem,
		Status: DecodeStatus(tc.MStatus, tc.SATP),
		Code:   cause.Code,
		PC:     tc.MEPC,
		TVal:   tc.MTVAL,
	})
}

// HandleInterrupt runs the vector-table handler for code and returns pc,
// the interrupted PC.
func (h *Handler) HandleInterrupt(code, pc uint32) (uint32, error) {
	if h.vectors == nil {
		return 0, &Halt{
			Kind:  KindUnsupportedCause,
			Cause: Cause{Interrupt: true, Code: code},
			PC:    pc,
		}
	}

	h.vectors.Lookup(code)(code)
	return pc, nil
}

// HandleException emulates a misaligned load or store and returns the PC
// to resume at, or a *Halt.
func (h *Handler) HandleException(f *Frame) (uint32, error) {
	cause := Cause{Code: f.Code}

	nextPC, err := h.dispatch(f, cause)
	if err != nil {
		var hlt *Halt
		if errors.As(err, &hlt) {
			hlt.Cause = cause
		}
		return 0, err
	}
	return nextPC, nil
}

func (h *Handler) dispatch(f *Frame, cause Cause) (uint32, error) {
	if !cause.IsMisalignedAccess() {
		return 0, halt(KindUnsupportedCause, f.PC, f.TVal)
	}

	if f.Status.NeedsTranslation() {
		return 0, halt(KindTranslationRequired, f.PC, f.TVal)
	}

	instr, err := h.instruction(f)
	if err != nil {
		return 0, err
	}

	switch insts.Opcode(instr) {
	case insts.OpcodeLoad:
		return EmulateLoad(f.Regs, f.Mem, instr, f.PC)
	case insts.OpcodeStore:
		return EmulateStore(f.Regs, f.Mem, instr, f.PC)
	}

	return 0, halt(KindInvalidInstruction, f.PC, instr)
}

// instruction returns the faulting instruction word.
func (h *Handler) instruction(f *Frame) (uint32, error) {
	if !h.fetchFromPC {
		return f.TVal, nil
	}
	if f.PC%emu.WordSize != 0 {
		return 0, halt(KindInvalidInstruction, f.PC, 0)
	}
	return f.Mem.ReadWord(f.PC), nil
}
