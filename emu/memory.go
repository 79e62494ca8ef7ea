package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Memory geometry.
const (
	// PageSize is the allocation unit of Memory.
	PageSize = 4096

	// PageShift is log2(PageSize).
	PageShift = 12

	// WordSize is the only access width the word port allows.
	WordSize = 4
)

// ErrMisaligned is the panic value wrapped when a word port receives an
// address that is not a multiple of WordSize.
var ErrMisaligned = errors.New("emu: misaligned word access")

// WordPort is the raw aligned-word capability of the memory subsystem.
// Addresses must be multiples of WordSize; implementations panic with an
// error wrapping ErrMisaligned otherwise.
type WordPort interface {
	ReadWord(addr uint32) uint32
	WriteWord(addr uint32, value uint32)
}

// CheckAligned panics if addr is not word aligned.
func CheckAligned(addr uint32) {
	if addr&(WordSize-1) != 0 {
		panic(fmt.Errorf("%w at 0x%08x", ErrMisaligned, addr))
	}
}

// Memory is a sparse little-endian 32-bit address space allocated in
// 4 KiB pages on first touch. Untouched memory reads as zero.
//
// Byte accessors are the loader's and tests' back door; the hart and the
// trap layer only use ReadWord and WriteWord.
type Memory struct {
	pages map[uint32]*[PageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*[PageSize]byte)}
}

func (m *Memory) page(addr uint32, create bool) *[PageSize]byte {
	idx := addr >> PageShift
	p, ok := m.pages[idx]
	if !ok && create {
		p = new([PageSize]byte)
		m.pages[idx] = p
	}
	return p
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&(PageSize-1)]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value byte) {
	m.page(addr, true)[addr&(PageSize-1)] = value
}

// LoadBytes copies data into memory starting at addr. The copy wraps at
// the top of the address space.
func (m *Memory) LoadBytes(addr uint32, data []byte) {
	for i, b := range data {
		m.Write8(addr+uint32(i), b)
	}
}

// ReadBytes returns n bytes starting at addr.
func (m *Memory) ReadBytes(addr uint32, n int) []byte {
	data := make([]byte, n)
	for i := range data {
		data[i] = m.Read8(addr + uint32(i))
	}
	return data
}

// ReadWord reads the aligned word at addr.
func (m *Memory) ReadWord(addr uint32) uint32 {
	CheckAligned(addr)
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	off := addr & (PageSize - 1)
	return binary.LittleEndian.Uint32(p[off : off+WordSize])
}

// WriteWord writes the aligned word at addr.
func (m *Memory) WriteWord(addr uint32, value uint32) {
	CheckAligned(addr)
	off := addr & (PageSize - 1)
	binary.LittleEndian.PutUint32(m.page(addr, true)[off:off+WordSize], value)
}

// PageCount returns the number of allocated pages.
func (m *Memory) PageCount() int {
	return len(m.pages)
}
