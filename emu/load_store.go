package emu

import (
	"github.com/sarchlab/rvtrap/bitfield"
	"github.com/sarchlab/rvtrap/insts"
)

// LoadStoreUnit implements the hart's native RV32 loads and stores.
// Every access is one aligned word access; sub-word stores are
// read-modify-write. Accesses whose address is not a multiple of their
// width are refused and left to the trap handler.
type LoadStoreUnit struct {
	regFile *RegFile
	port    WordPort
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and word port.
func NewLoadStoreUnit(regFile *RegFile, port WordPort) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		port:    port,
	}
}

// accessWidth returns the byte width of a load or store operation.
func accessWidth(op insts.Op) uint32 {
	switch op {
	case insts.OpLB, insts.OpLBU, insts.OpSB:
		return 1
	case insts.OpLH, insts.OpLHU, insts.OpSH:
		return 2
	case insts.OpLW, insts.OpSW:
		return 4
	}
	return 0
}

// EffectiveAddress returns rs1 + imm with wraparound.
func (lsu *LoadStoreUnit) EffectiveAddress(inst *insts.Instruction) uint32 {
	return lsu.regFile.ReadReg(inst.Rs1) + inst.Imm
}

// Load executes a load. It returns false without side effects when the
// address is misaligned for the access width.
func (lsu *LoadStoreUnit) Load(inst *insts.Instruction) bool {
	addr := lsu.EffectiveAddress(inst)
	width := accessWidth(inst.Op)
	if width == 0 || addr%width != 0 {
		return false
	}

	word := lsu.port.ReadWord(addr &^ 3)
	value := word >> ((addr & 3) * 8)

	switch inst.Op {
	case insts.OpLB:
		value = bitfield.SignExtend8(value)
	case insts.OpLBU:
		value = bitfield.ZeroExtend8(value)
	case insts.OpLH:
		value = bitfield.SignExtend16(value)
	case insts.OpLHU:
		value = bitfield.ZeroExtend16(value)
	}

	lsu.regFile.WriteReg(inst.Rd, value)
	return true
}

// Store executes a store. It returns false without side effects when the
// address is misaligned for the access width.
func (lsu *LoadStoreUnit) Store(inst *insts.Instruction) bool {
	addr := lsu.EffectiveAddress(inst)
	width := accessWidth(inst.Op)
	if width == 0 || addr%width != 0 {
		return false
	}

	value := lsu.regFile.ReadReg(inst.Rs2)
	aligned := addr &^ 3
	if width == 4 {
		lsu.port.WriteWord(aligned, value)
		return true
	}

	shift := (addr & 3) * 8
	mask := bitfield.Mask(width*8) << shift
	word := lsu.port.ReadWord(aligned)
	word = (word &^ mask) | ((value << shift) & mask)
	lsu.port.WriteWord(aligned, word)
	return true
}
