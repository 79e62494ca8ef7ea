package insts

// EncodeI builds an I-type instruction word. Only the low 12 bits of imm
// are used.
func EncodeI(opcode, rd, funct3, rs1 uint8, imm int32) uint32 {
	u := uint32(imm) & 0xFFF
	return u<<20 | uint32(rs1&0x1F)<<15 | uint32(funct3&0x7)<<12 |
		uint32(rd&0x1F)<<7 | uint32(opcode&0x7F)
}

// EncodeS builds an S-type instruction word. Only the low 12 bits of imm
// are used.
func EncodeS(opcode, funct3, rs1, rs2 uint8, imm int32) uint32 {
	u := uint32(imm) & 0xFFF
	immHi := (u >> 5) & 0x7F
	immLo := u & 0x1F
	return immHi<<25 | uint32(rs2&0x1F)<<20 | uint32(rs1&0x1F)<<15 |
		uint32(funct3&0x7)<<12 | immLo<<7 | uint32(opcode&0x7F)
}

// EncodeU builds a U-type instruction word from the upper 20 bits.
func EncodeU(opcode, rd uint8, imm20 uint32) uint32 {
	return (imm20&0xFFFFF)<<12 | uint32(rd&0x1F)<<7 | uint32(opcode&0x7F)
}

// EncodeB builds a B-type instruction word. offset is a byte offset; bit 0
// is dropped.
func EncodeB(opcode, funct3, rs1, rs2 uint8, offset int32) uint32 {
	u := uint32(offset)
	return ((u>>12)&1)<<31 | ((u>>5)&0x3F)<<25 | uint32(rs2&0x1F)<<20 |
		uint32(rs1&0x1F)<<15 | uint32(funct3&0x7)<<12 |
		((u>>1)&0xF)<<8 | ((u>>11)&1)<<7 | uint32(opcode&0x7F)
}

// Load encodes a load with the given function-select.
func Load(funct3, rd, rs1 uint8, offset int32) uint32 {
	return EncodeI(OpcodeLoad, rd, funct3, rs1, offset)
}

// Store encodes a store with the given function-select.
func Store(funct3, rs1, rs2 uint8, offset int32) uint32 {
	return EncodeS(OpcodeStore, funct3, rs1, rs2, offset)
}

// ADDI encodes rd = rs1 + imm.
func ADDI(rd, rs1 uint8, imm int32) uint32 {
	return EncodeI(OpcodeOpImm, rd, Funct3ADDI, rs1, imm)
}

// LUI encodes rd = imm20 << 12.
func LUI(rd uint8, imm20 uint32) uint32 {
	return EncodeU(OpcodeLUI, rd, imm20)
}

// BEQ encodes a branch to pc+offset taken when rs1 == rs2.
func BEQ(rs1, rs2 uint8, offset int32) uint32 {
	return EncodeB(OpcodeBranch, Funct3BEQ, rs1, rs2, offset)
}

// BNE encodes a branch to pc+offset taken when rs1 != rs2.
func BNE(rs1, rs2 uint8, offset int32) uint32 {
	return EncodeB(OpcodeBranch, Funct3BNE, rs1, rs2, offset)
}

// ECALL is the environment-call instruction word.
const ECALL uint32 = 0x00000073

// LoadImmediate returns the LUI/ADDI pair that sets rd to value.
// The ADDI immediate is sign-extended, so the upper part is rounded up
// when bit 11 of value is set.
func LoadImmediate(rd uint8, value uint32) []uint32 {
	lo := int32(value<<20) >> 20
	hi := (value - uint32(lo)) >> 12
	if hi == 0 {
		return []uint32{ADDI(rd, 0, lo)}
	}
	return []uint32{LUI(rd, hi), ADDI(rd, rd, lo)}
}
