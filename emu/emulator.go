package emu

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvtrap/insts"
	"github.com/sarchlab/rvtrap/timing/latency"
)

// ErrNoTrapHandler is returned when a trap is raised with no handler
// installed.
var ErrNoTrapHandler = errors.New("no trap handler installed")

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// Exited is true if the program terminated via ECALL.
	Exited bool

	// ExitCode is the value of a0 at ECALL if Exited is true.
	ExitCode int64

	// Trapped is true if the step entered the trap handler and resumed.
	Trapped bool

	// Halted is true once the trap handler has stopped the hart. A halted
	// hart stays halted until Reset.
	Halted bool

	// Err is set if an error occurred during execution. For a halt it is
	// the handler's error.
	Err error
}

// Statistics holds hart execution counters.
type Statistics struct {
	Instructions     uint64
	Traps            uint64
	Interrupts       uint64
	MisalignedLoads  uint64
	MisalignedStores uint64
	TrapWordReads    uint64
	TrapWordWrites   uint64
	Cycles           uint64
}

// Emulator is an RV32 hart. It executes LUI, ADDI, BEQ, BNE, loads,
// stores and ECALL. Loads and stores whose address is not a multiple of their width
// raise a misaligned exception and are handed to the installed
// TrapHandler.
type Emulator struct {
	regFile *RegFile
	port    WordPort
	decoder *insts.Decoder
	lsu     *LoadStoreUnit
	handler TrapHandler
	syscall SyscallHandler

	// Trap state as seen by the handler.
	privilege   Privilege
	translation TranslationMode
	pending     []uint32

	latencyTable *latency.Table
	logger       *logrus.Logger
	stdout       io.Writer

	stats           Statistics
	maxInstructions uint64 // 0 means no limit
	halted          bool
	haltErr         error
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithStdout sets the writer used for run reports.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithLogger sets the logger used for halt diagnostics and tracing.
func WithLogger(logger *logrus.Logger) EmulatorOption {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithTrapHandler installs the machine-mode trap handler.
func WithTrapHandler(handler TrapHandler) EmulatorOption {
	return func(e *Emulator) {
		e.handler = handler
	}
}

// WithPrivilege sets the privilege level the program runs at. It is
// reported to the handler as mstatus.MPP.
func WithPrivilege(p Privilege) EmulatorOption {
	return func(e *Emulator) {
		e.privilege = p
	}
}

// WithTranslation sets satp.MODE as seen by the handler.
func WithTranslation(mode TranslationMode) EmulatorOption {
	return func(e *Emulator) {
		e.translation = mode
	}
}

// WithLatencyTable enables cycle accounting.
func WithLatencyTable(table *latency.Table) EmulatorOption {
	return func(e *Emulator) {
		e.latencyTable = table
	}
}

// WithMaxInstructions sets the maximum number of instructions to execute.
// A value of 0 means no limit.
func WithMaxInstructions(max uint64) EmulatorOption {
	return func(e *Emulator) {
		e.maxInstructions = max
	}
}

// NewEmulator creates a hart whose every memory access goes through port.
// The hart starts in machine mode with translation off.
func NewEmulator(port WordPort, opts ...EmulatorOption) *Emulator {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	e := &Emulator{
		regFile:   &RegFile{},
		port:      port,
		decoder:   insts.NewDecoder(),
		privilege: PrivMachine,
		logger:    logger,
		stdout:    os.Stdout,
	}

	for _, opt := range opts {
		opt(e)
	}

	e.lsu = NewLoadStoreUnit(e.regFile, e.port)

	return e
}

// RegFile returns the hart's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Port returns the hart's memory port.
func (e *Emulator) Port() WordPort {
	return e.port
}

// Stats returns the execution counters.
func (e *Emulator) Stats() Statistics {
	return e.stats
}

// InstructionCount returns the number of instructions retired.
func (e *Emulator) InstructionCount() uint64 {
	return e.stats.Instructions
}

// Halted reports whether the hart has stopped permanently, and why.
func (e *Emulator) Halted() (bool, error) {
	return e.halted, e.haltErr
}

// SetSyscallHandler makes ECALL run a syscall instead of exiting with a0.
func (e *Emulator) SetSyscallHandler(handler SyscallHandler) {
	e.syscall = handler
}

// SetPC sets the program counter.
func (e *Emulator) SetPC(pc uint32) {
	e.regFile.PC = pc
}

// RaiseInterrupt queues an asynchronous trap with the given cause code.
// It is taken before the next instruction.
func (e *Emulator) RaiseInterrupt(code uint32) {
	e.pending = append(e.pending, code)
}

// Reset clears registers, counters and the halted state. Memory is kept.
func (e *Emulator) Reset() {
	*e.regFile = RegFile{}
	e.pending = nil
	e.stats = Statistics{}
	e.halted = false
	e.haltErr = nil
}

// Step executes a single instruction, or takes one pending interrupt.
func (e *Emulator) Step() StepResult {
	if e.halted {
		return StepResult{Halted: true, Err: e.haltErr}
	}

	if e.maxInstructions > 0 && e.stats.Instructions >= e.maxInstructions {
		return StepResult{
			Err: fmt.Errorf("max instructions reached"),
		}
	}

	if len(e.pending) > 0 {
		code := e.pending[0]
		e.pending = e.pending[1:]
		e.stats.Interrupts++
		return e.takeTrap(ComposeMCause(true, code), 0)
	}

	pc := e.regFile.PC
	if pc%4 != 0 {
		// no instruction was fetched, so mtval carries none
		return e.takeTrap(ComposeMCause(false, CauseInstructionMisaligned), 0)
	}

	word := e.port.ReadWord(pc)
	inst := e.decoder.Decode(word)

	e.logger.WithFields(logrus.Fields{
		"pc":    fmt.Sprintf("0x%08x", pc),
		"instr": insts.Disassemble(inst),
	}).Debug("step")

	return e.execute(inst)
}

// Run executes instructions until the program exits or an error occurs.
// Returns the exit code (-1 if error or halt).
func (e *Emulator) Run() int64 {
	for {
		result := e.Step()
		if result.Exited {
			return result.ExitCode
		}
		if result.Err != nil {
			if !result.Halted {
				_, _ = fmt.Fprintf(e.stdout, "Emulation error: %v\n", result.Err)
			}
			return -1
		}
	}
}

// execute dispatches and executes a decoded instruction.
func (e *Emulator) execute(inst *insts.Instruction) StepResult {
	switch inst.Op {
	case insts.OpADDI:
		e.regFile.WriteReg(inst.Rd, e.regFile.ReadReg(inst.Rs1)+inst.Imm)
	case insts.OpLUI:
		e.regFile.WriteReg(inst.Rd, inst.Imm)
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
		if !e.lsu.Load(inst) {
			e.stats.MisalignedLoads++
			return e.takeTrap(ComposeMCause(false, CauseLoadMisaligned), inst.Word)
		}
	case insts.OpSB, insts.OpSH, insts.OpSW:
		if !e.lsu.Store(inst) {
			e.stats.MisalignedStores++
			return e.takeTrap(ComposeMCause(false, CauseStoreMisaligned), inst.Word)
		}
	case insts.OpBEQ, insts.OpBNE:
		e.retire(inst)
		equal := e.regFile.ReadReg(inst.Rs1) == e.regFile.ReadReg(inst.Rs2)
		if equal == (inst.Op == insts.OpBEQ) {
			e.regFile.PC += inst.Imm
		} else {
			e.regFile.PC += 4
		}
		return StepResult{}
	case insts.OpECALL:
		e.retire(inst)
		e.regFile.PC += 4
		if e.syscall != nil {
			r := e.syscall.Handle()
			return StepResult{Exited: r.Exited, ExitCode: r.ExitCode}
		}
		return StepResult{
			Exited:   true,
			ExitCode: int64(int32(e.regFile.ReadReg(regA0))),
		}
	default:
		return e.takeTrap(ComposeMCause(false, CauseIllegalInstruction), inst.Word)
	}

	e.retire(inst)
	e.regFile.PC += 4
	return StepResult{}
}

func (e *Emulator) retire(inst *insts.Instruction) {
	e.stats.Instructions++
	if e.latencyTable != nil {
		e.stats.Cycles += e.latencyTable.GetLatency(inst)
	}
}

// takeTrap enters the trap handler with the given mcause and mtval and
// resumes at the PC it returns. An exception that the handler completes
// counts as a retired instruction.
func (e *Emulator) takeTrap(mcause, mtval uint32) StepResult {
	e.stats.Traps++

	if e.handler == nil {
		return e.halt(mcause, fmt.Errorf("trap 0x%08x at pc 0x%08x: %w",
			mcause, e.regFile.PC, ErrNoTrapHandler))
	}

	port := &countingPort{WordPort: e.port}
	tc := &TrapContext{
		Regs:    e.regFile,
		Mem:     port,
		MCause:  mcause,
		MStatus: ComposeMStatus(e.privilege),
		SATP:    ComposeSATP(e.translation),
		MEPC:    e.regFile.PC,
		MTVAL:   mtval,
	}

	nextPC, err := e.handler.HandleTrap(tc)

	e.stats.TrapWordReads += port.reads
	e.stats.TrapWordWrites += port.writes
	if e.latencyTable != nil {
		e.stats.Cycles += e.latencyTable.GetTrapLatency(port.reads, port.writes)
	}

	if err != nil {
		return e.halt(mcause, err)
	}

	if mcause&MCauseInterrupt == 0 {
		e.stats.Instructions++
	}
	e.regFile.PC = nextPC
	return StepResult{Trapped: true}
}

// halt parks the hart permanently and reports why.
func (e *Emulator) halt(mcause uint32, err error) StepResult {
	e.halted = true
	e.haltErr = err

	word := e.peekInstruction()
	var dump bytes.Buffer
	e.regFile.Dump(&dump)

	e.logger.WithFields(logrus.Fields{
		"pc":     fmt.Sprintf("0x%08x", e.regFile.PC),
		"mcause": fmt.Sprintf("0x%08x", mcause),
		"instr":  insts.Disassemble(e.decoder.Decode(word)),
	}).Errorf("hart halted: %v\n%s", err, dump.String())

	return StepResult{Halted: true, Err: err}
}

// peekInstruction reads the word at PC for diagnostics, or 0 if PC is
// not word aligned.
func (e *Emulator) peekInstruction() uint32 {
	if e.regFile.PC%4 != 0 {
		return 0
	}
	return e.port.ReadWord(e.regFile.PC)
}
