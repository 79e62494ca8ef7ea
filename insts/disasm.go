package insts

import "fmt"

// abiNames holds the RV32 integer register ABI names.
var abiNames = [32]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of register index reg.
func RegName(reg uint8) string {
	if int(reg) < len(abiNames) {
		return abiNames[reg]
	}
	return fmt.Sprintf("x%d", reg)
}

var mnemonics = map[Op]string{
	OpLB:    "lb",
	OpLH:    "lh",
	OpLW:    "lw",
	OpLBU:   "lbu",
	OpLHU:   "lhu",
	OpSB:    "sb",
	OpSH:    "sh",
	OpSW:    "sw",
	OpADDI:  "addi",
	OpLUI:   "lui",
	OpECALL: "ecall",
	OpBEQ:   "beq",
	OpBNE:   "bne",
}

// String returns the mnemonic of op.
func (op Op) String() string {
	if m, ok := mnemonics[op]; ok {
		return m
	}
	return "unknown"
}

// Disassemble renders inst in assembler syntax, e.g. "lh a0, 1(a1)".
// Unknown words render as ".word 0x...".
func Disassemble(inst *Instruction) string {
	switch inst.Op {
	case OpLB, OpLH, OpLW, OpLBU, OpLHU:
		return fmt.Sprintf("%s %s, %d(%s)", inst.Op, RegName(inst.Rd),
			int32(inst.Imm), RegName(inst.Rs1))
	case OpSB, OpSH, OpSW:
		return fmt.Sprintf("%s %s, %d(%s)", inst.Op, RegName(inst.Rs2),
			int32(inst.Imm), RegName(inst.Rs1))
	case OpADDI:
		return fmt.Sprintf("addi %s, %s, %d", RegName(inst.Rd),
			RegName(inst.Rs1), int32(inst.Imm))
	case OpLUI:
		return fmt.Sprintf("lui %s, 0x%x", RegName(inst.Rd), inst.Imm>>12)
	case OpBEQ, OpBNE:
		return fmt.Sprintf("%s %s, %s, %d", inst.Op, RegName(inst.Rs1),
			RegName(inst.Rs2), int32(inst.Imm))
	case OpECALL:
		return "ecall"
	}
	return fmt.Sprintf(".word 0x%08x", inst.Word)
}
