// Package bitfield provides the 32-bit field primitives used to pick apart
// RV32 instruction words and to merge and split memory words.
//
// Every function is total over the full uint32 domain. Bit positions and
// widths of 32 or more are legal inputs: Go defines shifts by the operand
// width or more as producing zero, so a mask of 32 bits is all ones and a
// mask starting at bit 32 is empty.
package bitfield

// Mask returns a right-aligned mask of numBits ones.
func Mask(numBits uint32) uint32 {
	return (uint32(1) << numBits) - 1
}

// SetBit returns dst with the given bit set.
func SetBit(dst, bit uint32) uint32 {
	return dst | uint32(1)<<bit
}

// ClearBit returns dst with the given bit cleared.
func ClearBit(dst, bit uint32) uint32 {
	return dst &^ (uint32(1) << bit)
}

// TestBit reports whether the given bit of src is set.
func TestBit(src, bit uint32) bool {
	return src&(uint32(1)<<bit) != 0
}

// BitRightAligned returns the given bit of src moved to bit 0.
func BitRightAligned(src, bit uint32) uint32 {
	return (src >> bit) & 1
}

// BitUnaligned returns the given bit of src left in place.
func BitUnaligned(src, bit uint32) uint32 {
	return src & (uint32(1) << bit)
}

// SetBitsToValue ORs value into dst at bitOffset.
func SetBitsToValue(dst, bitOffset, value uint32) uint32 {
	return dst | value<<bitOffset
}

// ClearBits returns dst with numBits bits cleared starting at fromBit.
func ClearBits(dst, fromBit, numBits uint32) uint32 {
	return dst &^ (Mask(numBits) << fromBit)
}

// Extract returns numBits bits of src starting at fromBit, right aligned.
func Extract(src, fromBit, numBits uint32) uint32 {
	return (src >> fromBit) & Mask(numBits)
}

// ExtractShiftRight masks numBits bits of src starting at fromBit and
// shifts the masked field right by shift, which need not equal fromBit.
// Used to drop a split immediate directly into its final position.
func ExtractShiftRight(src, fromBit, numBits, shift uint32) uint32 {
	return (src & (Mask(numBits) << fromBit)) >> shift
}

// ExtractShiftLeft masks numBits bits of src starting at fromBit and
// shifts the masked field left by shift.
func ExtractShiftLeft(src, fromBit, numBits, shift uint32) uint32 {
	return (src & (Mask(numBits) << fromBit)) << shift
}

// SignExtend replicates bit totalBits-1 of a right-aligned field into every
// higher bit. Bits at or above totalBits in value are expected to be zero;
// they are left untouched when the sign bit is clear.
// A totalBits of 0 returns value unchanged.
func SignExtend(value, totalBits uint32) uint32 {
	if totalBits == 0 || totalBits >= 32 {
		return value
	}
	if value&(uint32(1)<<(totalBits-1)) != 0 {
		return value | ^Mask(totalBits)
	}
	return value
}

// SignExtend8 sign-extends the low byte of src.
func SignExtend8(src uint32) uint32 {
	return SignExtend(src&0x000000ff, 8)
}

// SignExtend16 sign-extends the low halfword of src.
func SignExtend16(src uint32) uint32 {
	return SignExtend(src&0x0000ffff, 16)
}

// ZeroExtend8 clears everything above the low byte of src.
func ZeroExtend8(src uint32) uint32 {
	return src & 0x000000ff
}

// ZeroExtend16 clears everything above the low halfword of src.
func ZeroExtend16(src uint32) uint32 {
	return src & 0x0000ffff
}
