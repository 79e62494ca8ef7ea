package cache

import (
	"github.com/sarchlab/rvtrap/emu"
)

// MemoryBacking wraps emu.Memory as a BackingStore.
type MemoryBacking struct {
	memory *emu.Memory
}

// NewMemoryBacking creates a new MemoryBacking adapter.
func NewMemoryBacking(memory *emu.Memory) *MemoryBacking {
	return &MemoryBacking{memory: memory}
}

// ReadBlock fetches size bytes at addr from the backing memory.
func (m *MemoryBacking) ReadBlock(addr uint32, size int) []byte {
	return m.memory.ReadBytes(addr, size)
}

// WriteBlock stores data at addr in the backing memory.
func (m *MemoryBacking) WriteBlock(addr uint32, data []byte) {
	m.memory.LoadBytes(addr, data)
}

// WordPort presents a Cache as an emu.WordPort and accumulates the
// latency of every access it serves.
type WordPort struct {
	cache  *Cache
	cycles uint64
}

// NewWordPort creates a word port in front of c.
func NewWordPort(c *Cache) *WordPort {
	return &WordPort{cache: c}
}

// ReadWord implements emu.WordPort.
func (p *WordPort) ReadWord(addr uint32) uint32 {
	r := p.cache.ReadWord(addr)
	p.cycles += r.Latency
	return r.Data
}

// WriteWord implements emu.WordPort.
func (p *WordPort) WriteWord(addr uint32, value uint32) {
	p.cycles += p.cache.WriteWord(addr, value).Latency
}

// Cycles returns the memory cycles spent so far.
func (p *WordPort) Cycles() uint64 {
	return p.cycles
}

// Cache returns the underlying cache.
func (p *WordPort) Cache() *Cache {
	return p.cache
}
