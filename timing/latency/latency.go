// Package latency provides the cycle cost model for the hart and its
// misaligned-access trap path.
//
// The values are configurable via TimingConfig and loaded from JSON.
package latency

import (
	"github.com/sarchlab/rvtrap/insts"
)

// Table provides instruction and trap latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for a natively
// executed instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return 1
	}

	switch inst.Op {
	case insts.OpADDI, insts.OpLUI:
		return t.config.ALULatency

	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
		return t.config.LoadLatency

	case insts.OpSB, insts.OpSH, insts.OpSW:
		return t.config.StoreLatency

	case insts.OpBEQ, insts.OpBNE:
		return t.config.BranchLatency

	case insts.OpECALL:
		return t.config.SyscallLatency

	default:
		return 1
	}
}

// GetTrapLatency returns the cost of one handled trap that issued the
// given number of aligned word reads and writes.
func (t *Table) GetTrapLatency(reads, writes uint64) uint64 {
	return t.config.TrapEntryLatency +
		t.config.DecodeLatency +
		reads*t.config.WordReadLatency +
		writes*t.config.WordWriteLatency +
		t.config.TrapReturnLatency
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
		return true
	default:
		return false
	}
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	switch inst.Op {
	case insts.OpSB, insts.OpSH, insts.OpSW:
		return true
	default:
		return false
	}
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
