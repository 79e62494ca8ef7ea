// Package insts provides RV32 instruction definitions and decoding.
//
// This package decodes the subset of RV32I machine code that the trap layer
// and the trapping hart need:
//   - Loads (I-type): LB, LH, LW, LBU, LHU
//   - Stores (S-type): SB, SH, SW
//   - ADDI, LUI, BEQ, BNE and ECALL for the hart's own programs
//
// Decoding is pure bit extraction and never fails. Whether a function-select
// value names a real load or store width is decided by the consumer.
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst := decoder.Decode(0x00159503) // lh a0, 1(a1)
//	fmt.Println(insts.Disassemble(inst))
package insts
