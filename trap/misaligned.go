package trap

import (
	"math/bits"

	"github.com/sarchlab/rvtrap/bitfield"
	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/insts"
)

// span is the location of a 1, 2 or 4 byte access relative to the aligned
// word that holds its first byte.
type span struct {
	aligned uint32 // addr with the low two bits cleared
	offset  uint32 // addr & 3
	width   uint32 // bytes
}

func splitAddress(addr, width uint32) span {
	return span{aligned: addr &^ 3, offset: addr & 3, width: width}
}

// shift is the bit position of the first accessed byte within its word.
func (s span) shift() uint32 {
	return s.offset * 8
}

// straddles reports whether the access continues into the next word.
func (s span) straddles() bool {
	return s.offset+s.width > emu.WordSize
}

// next returns the address of the following aligned word. ok is false if
// it would wrap past the top of the address space.
func (s span) next() (addr uint32, ok bool) {
	addr, carry := bits.Add32(s.aligned, emu.WordSize, 0)
	return addr, carry == 0
}

// loadWidth maps a load function-select to its byte width and extension.
func loadWidth(funct3 uint8) (width uint32, signed bool, ok bool) {
	switch funct3 {
	case insts.Funct3LB:
		return 1, true, true
	case insts.Funct3LBU:
		return 1, false, true
	case insts.Funct3LH:
		return 2, true, true
	case insts.Funct3LHU:
		return 2, false, true
	case insts.Funct3LW:
		return 4, true, true
	}
	return 0, false, false
}

// storeWidth maps a store function-select to its byte width.
func storeWidth(funct3 uint8) (width uint32, ok bool) {
	if funct3 > insts.Funct3SW {
		return 0, false
	}
	return 1 << funct3, true
}

// extend truncates a right-aligned value to width bytes and applies the
// extension policy. A word fills the register and is returned unchanged.
func extend(value, width uint32, signed bool) uint32 {
	switch width {
	case 1:
		if signed {
			return bitfield.SignExtend8(value)
		}
		return bitfield.ZeroExtend8(value)
	case 2:
		if signed {
			return bitfield.SignExtend16(value)
		}
		return bitfield.ZeroExtend16(value)
	}
	return value
}

// EmulateLoad performs the load encoded by instr using aligned word reads
// only, writes the result to rd (discarded for x0) and returns pc+4.
//
// An undefined function-select returns a KindInvalidInstruction halt and
// a second word beyond the top of the address space returns a
// KindAddressOverflow halt; regs is not modified in either case.
func EmulateLoad(regs *emu.RegFile, mem emu.WordPort, instr, pc uint32) (uint32, error) {
	inst := insts.DecodeLoadStyle(instr)

	width, signed, ok := loadWidth(inst.Funct3)
	if !ok {
		return 0, halt(KindInvalidInstruction, pc, instr)
	}

	s := splitAddress(regs.ReadReg(inst.Rs1)+inst.Imm, width)

	var value uint32
	if !s.straddles() {
		value = mem.ReadWord(s.aligned) >> s.shift()
	} else {
		next, ok := s.next()
		if !ok {
			return 0, halt(KindAddressOverflow, pc, instr)
		}
		low := mem.ReadWord(s.aligned)
		high := mem.ReadWord(next)
		value = (low >> s.shift()) | (high << (32 - s.shift()))
	}

	regs.WriteReg(inst.Rd, extend(value, width, signed))

	return pc + 4, nil
}

// EmulateStore performs the store encoded by instr using aligned word
// reads and writes only and returns pc+4. Bytes outside
// [addr, addr+width) keep their values.
//
// An undefined function-select or a second word beyond the top of the
// address space returns a halt before any memory access.
func EmulateStore(regs *emu.RegFile, mem emu.WordPort, instr, pc uint32) (uint32, error) {
	inst := insts.DecodeStoreStyle(instr)

	width, ok := storeWidth(inst.Funct3)
	if !ok {
		return 0, halt(KindInvalidInstruction, pc, instr)
	}

	s := splitAddress(regs.ReadReg(inst.Rs1)+inst.Imm, width)
	value := regs.ReadReg(inst.Rs2) & bitfield.Mask(width*8)
	shift := s.shift()

	if !s.straddles() {
		mask := bitfield.Mask(width*8) << shift
		word := mem.ReadWord(s.aligned)
		mem.WriteWord(s.aligned, (word&^mask)|(value<<shift))
		return pc + 4, nil
	}

	next, ok := s.next()
	if !ok {
		return 0, halt(KindAddressOverflow, pc, instr)
	}

	// The low word keeps its low shift bits and takes the value's low
	// 32-shift bits; the high word takes the remaining highBits.
	highBits := (s.offset + width - emu.WordSize) * 8
	low := mem.ReadWord(s.aligned)
	high := mem.ReadWord(next)

	newLow := (low & bitfield.Mask(shift)) | (value << shift)
	newHigh := (high &^ bitfield.Mask(highBits)) | (value >> (32 - shift))

	mem.WriteWord(s.aligned, newLow)
	mem.WriteWord(next, newHigh)

	return pc + 4, nil
}
