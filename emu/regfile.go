// Package emu provides a functional RV32 hart whose memory refuses
// misaligned word accesses, together with the memory and console devices
// it talks to.
package emu

import (
	"fmt"
	"io"

	"github.com/sarchlab/rvtrap/insts"
)

// RegFile represents the RV32 integer register file.
// It contains 32 general-purpose registers (x0-x31) and the program
// counter (PC).
type RegFile struct {
	// X holds general-purpose registers x0-x31.
	// X[0] is hardwired to zero; WriteReg never changes it.
	X [32]uint32

	// PC is the program counter.
	PC uint32
}

// ReadReg reads a register value. Register 0 always returns 0.
// Indices >= 32 return 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	if reg == 0 || reg >= 32 {
		return 0
	}
	return r.X[reg]
}

// WriteReg writes a value to a register. Writes to register 0 and to
// indices >= 32 are discarded.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	if reg == 0 || reg >= 32 {
		return
	}
	r.X[reg] = value
}

// Dump writes x1..x31, four per line, in the format used by halt reports.
func (r *RegFile) Dump(w io.Writer) {
	_, _ = fmt.Fprintf(w, "   pc:%08x", r.PC)
	for i := 1; i < 32; i++ {
		if i%4 == 0 {
			_, _ = fmt.Fprintf(w, "\n  ")
		}
		_, _ = fmt.Fprintf(w, " %4s:%08x", insts.RegName(uint8(i)), r.X[i])
	}
	_, _ = fmt.Fprintln(w)
}
