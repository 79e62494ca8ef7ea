// Package insts provides RV32 instruction definitions and decoding.
package insts

import "github.com/sarchlab/rvtrap/bitfield"

// Op represents a decoded RV32 operation.
type Op uint8

// RV32 operations known to the decoder.
const (
	OpUnknown Op = iota
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpLUI
	OpECALL
	OpBEQ
	OpBNE
)

// Format represents an instruction encoding format.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatI              // Load-style: imm[11:0] | rs1 | funct3 | rd | opcode
	FormatS              // Store-style: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
	FormatU              // imm[31:12] | rd | opcode
	FormatB              // imm[12|10:5] | rs2 | rs1 | funct3 | imm[4:1|11] | opcode
	FormatSystem         // ECALL/EBREAK and CSR space
)

// Major opcodes (bits [6:0]).
const (
	OpcodeLoad   uint8 = 0b0000011
	OpcodeOpImm  uint8 = 0b0010011
	OpcodeStore  uint8 = 0b0100011
	OpcodeLUI    uint8 = 0b0110111
	OpcodeBranch uint8 = 0b1100011
	OpcodeSystem uint8 = 0b1110011
)

// Load function-select values (funct3).
const (
	Funct3LB  uint8 = 0b000
	Funct3LH  uint8 = 0b001
	Funct3LW  uint8 = 0b010
	Funct3LBU uint8 = 0b100
	Funct3LHU uint8 = 0b101
)

// Store function-select values (funct3).
const (
	Funct3SB uint8 = 0b000
	Funct3SH uint8 = 0b001
	Funct3SW uint8 = 0b010
)

// Funct3ADDI is the OP-IMM function-select for ADDI.
const Funct3ADDI uint8 = 0b000

// Branch function-select values (funct3).
const (
	Funct3BEQ uint8 = 0b000
	Funct3BNE uint8 = 0b001
)

// Instruction represents a decoded RV32 instruction.
// Fields that the format does not carry are left zero.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding format
	Word   uint32 // Raw instruction word

	Opcode uint8 // bits [6:0]
	Funct3 uint8 // bits [14:12]
	Rd     uint8 // Destination register (I/U-type)
	Rs1    uint8 // Base register
	Rs2    uint8 // Value register (S/B-type)

	// Imm is the immediate, already sign-extended (I/S/B-type) or
	// left in place (U-type).
	Imm uint32
}

// Decoder decodes RV32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit RV32 instruction word.
func (d *Decoder) Decode(word uint32) *Instruction {
	var inst Instruction

	switch Opcode(word) {
	case OpcodeLoad:
		inst = DecodeLoadStyle(word)
		inst.Op = loadOp(inst.Funct3)
	case OpcodeOpImm:
		inst = DecodeLoadStyle(word)
		if inst.Funct3 == Funct3ADDI {
			inst.Op = OpADDI
		}
	case OpcodeStore:
		inst = DecodeStoreStyle(word)
		inst.Op = storeOp(inst.Funct3)
	case OpcodeLUI:
		inst = decodeUpper(word)
		inst.Op = OpLUI
	case OpcodeBranch:
		inst = decodeBranch(word)
		switch inst.Funct3 {
		case Funct3BEQ:
			inst.Op = OpBEQ
		case Funct3BNE:
			inst.Op = OpBNE
		}
	case OpcodeSystem:
		inst = DecodeLoadStyle(word)
		inst.Format = FormatSystem
		if word == 0x00000073 {
			inst.Op = OpECALL
		}
	default:
		inst = Instruction{Word: word, Opcode: Opcode(word)}
	}

	return &inst
}

// Opcode extracts the major opcode, bits [6:0].
func Opcode(word uint32) uint8 {
	return uint8(word & 0x7F)
}

// Rd extracts the destination register index, bits [11:7].
func Rd(word uint32) uint8 {
	return uint8(bitfield.Extract(word, 7, 5))
}

// Rs1 extracts the base register index, bits [19:15].
func Rs1(word uint32) uint8 {
	return uint8(bitfield.Extract(word, 15, 5))
}

// Rs2 extracts the value register index, bits [24:20].
func Rs2(word uint32) uint8 {
	return uint8(bitfield.Extract(word, 20, 5))
}

// Funct3 extracts the function-select field, bits [14:12].
func Funct3(word uint32) uint8 {
	return uint8(bitfield.Extract(word, 12, 3))
}

// ImmI extracts the I-type immediate, bits [31:20], sign-extended.
func ImmI(word uint32) uint32 {
	return bitfield.SignExtend(bitfield.Extract(word, 20, 12), 12)
}

// ImmS reassembles the S-type immediate from bits [11:7] (imm[4:0]) and
// bits [31:25] (imm[11:5]), sign-extended.
func ImmS(word uint32) uint32 {
	imm := bitfield.Extract(word, 7, 5) |
		bitfield.ExtractShiftRight(word, 25, 7, 25-5)
	return bitfield.SignExtend(imm, 12)
}

// ImmB reassembles the branch offset: bit 31 is imm[12], bits [30:25] are
// imm[10:5], bits [11:8] are imm[4:1] and bit 7 is imm[11].
func ImmB(word uint32) uint32 {
	imm := bitfield.ExtractShiftRight(word, 31, 1, 31-12) |
		bitfield.ExtractShiftRight(word, 25, 6, 25-5) |
		bitfield.ExtractShiftRight(word, 8, 4, 8-1) |
		bitfield.ExtractShiftLeft(word, 7, 1, 11-7)
	return bitfield.SignExtend(imm, 13)
}

// DecodeLoadStyle decodes the I-type field set.
// Format: imm[11:0] | rs1 | funct3 | rd | opcode
func DecodeLoadStyle(word uint32) Instruction {
	return Instruction{
		Format: FormatI,
		Word:   word,
		Opcode: Opcode(word),
		Rd:     Rd(word),
		Funct3: Funct3(word),
		Rs1:    Rs1(word),
		Imm:    ImmI(word),
	}
}

// DecodeStoreStyle decodes the S-type field set.
// Format: imm[11:5] | rs2 | rs1 | funct3 | imm[4:0] | opcode
func DecodeStoreStyle(word uint32) Instruction {
	return Instruction{
		Format: FormatS,
		Word:   word,
		Opcode: Opcode(word),
		Funct3: Funct3(word),
		Rs1:    Rs1(word),
		Rs2:    Rs2(word),
		Imm:    ImmS(word),
	}
}

// decodeUpper decodes the U-type field set.
func decodeUpper(word uint32) Instruction {
	return Instruction{
		Format: FormatU,
		Word:   word,
		Opcode: Opcode(word),
		Rd:     Rd(word),
		Imm:    word & 0xFFFFF000,
	}
}

func decodeBranch(word uint32) Instruction {
	return Instruction{
		Format: FormatB,
		Word:   word,
		Opcode: Opcode(word),
		Funct3: Funct3(word),
		Rs1:    Rs1(word),
		Rs2:    Rs2(word),
		Imm:    ImmB(word),
	}
}

func loadOp(funct3 uint8) Op {
	switch funct3 {
	case Funct3LB:
		return OpLB
	case Funct3LH:
		return OpLH
	case Funct3LW:
		return OpLW
	case Funct3LBU:
		return OpLBU
	case Funct3LHU:
		return OpLHU
	}
	return OpUnknown
}

func storeOp(funct3 uint8) Op {
	switch funct3 {
	case Funct3SB:
		return OpSB
	case Funct3SH:
		return OpSH
	case Funct3SW:
		return OpSW
	}
	return OpUnknown
}
