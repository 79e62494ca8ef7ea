// Package cache provides a write-back data cache built on Akita cache
// components. It serves aligned 32-bit word accesses only.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/rvtrap/emu"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int
	// Associativity (number of ways)
	Associativity int
	// BlockSize in bytes (cache line size), a multiple of the word size
	BlockSize int
	// HitLatency in cycles
	HitLatency uint64
	// MissLatency in cycles (includes memory access time)
	MissLatency uint64
}

// DefaultConfig returns the configuration of a small embedded L1 data
// cache: 4KB, 4-way, 32B lines.
func DefaultConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 4,
		BlockSize:     32,
		HitLatency:    1,
		MissLatency:   10,
	}
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Data is the word read (for reads).
	Data uint32
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
}

// Cache is a write-allocate, write-back cache. Tags and replacement are
// managed by an Akita directory with an LRU victim finder.
type Cache struct {
	config Config

	directory *akitacache.DirectoryImpl

	// Data storage - indexed by (setID * associativity + wayID)
	dataStore [][]byte

	stats Statistics

	backing BackingStore
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// BackingStore is the next level in the memory hierarchy. It moves whole
// blocks.
type BackingStore interface {
	ReadBlock(addr uint32, size int) []byte
	WriteBlock(addr uint32, data []byte)
}

// New creates a new cache with the given configuration.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)
	totalBlocks := numSets * config.Associativity

	dataStore := make([][]byte, totalBlocks)
	for i := range dataStore {
		dataStore[i] = make([]byte, config.BlockSize)
	}

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		dataStore: dataStore,
		backing:   backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockIndex(block *akitacache.Block) int {
	return block.SetID*c.config.Associativity + block.WayID
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr - addr%uint32(c.config.BlockSize)
}

func (c *Cache) lookup(addr uint32) *akitacache.Block {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block == nil || !block.IsValid {
		return nil
	}
	return block
}

// ReadWord reads the aligned word at addr. It panics on a misaligned
// address.
func (c *Cache) ReadWord(addr uint32) AccessResult {
	emu.CheckAligned(addr)
	c.stats.Reads++

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		data := c.dataStore[c.blockIndex(block)]
		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
			Data:    loadWord(data, addr%uint32(c.config.BlockSize)),
		}
	}

	c.stats.Misses++
	result, data := c.fill(addr)
	result.Data = loadWord(data, addr%uint32(c.config.BlockSize))
	return result
}

// WriteWord writes the aligned word at addr, allocating the block on a
// miss. It panics on a misaligned address.
func (c *Cache) WriteWord(addr uint32, value uint32) AccessResult {
	emu.CheckAligned(addr)
	c.stats.Writes++

	offset := addr % uint32(c.config.BlockSize)

	if block := c.lookup(addr); block != nil {
		c.stats.Hits++
		c.directory.Visit(block)

		storeWord(c.dataStore[c.blockIndex(block)], offset, value)
		block.IsDirty = true

		return AccessResult{
			Hit:     true,
			Latency: c.config.HitLatency,
		}
	}

	c.stats.Misses++
	result, data := c.fill(addr)
	storeWord(data, offset, value)

	// fill leaves the new block most recently used.
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	block.IsDirty = true

	return result
}

// fill brings the block holding addr into the cache, writing back a dirty
// victim first. It returns the block's data storage.
func (c *Cache) fill(addr uint32) (AccessResult, []byte) {
	result := AccessResult{Latency: c.config.MissLatency}

	blockAddr := c.blockAddr(addr)
	victim := c.directory.FindVictim(uint64(blockAddr))
	data := c.dataStore[c.blockIndex(victim)]

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty && c.backing != nil {
			c.stats.Writebacks++
			c.backing.WriteBlock(uint32(victim.Tag), data)
		}
	}

	if c.backing != nil {
		copy(data, c.backing.ReadBlock(blockAddr, c.config.BlockSize))
	} else {
		clear(data)
	}

	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = false
	c.directory.Visit(victim)

	return result, data
}

// Invalidate drops the line holding addr without writeback.
func (c *Cache) Invalidate(addr uint32) {
	if block := c.lookup(addr); block != nil {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty && c.backing != nil {
				c.backing.WriteBlock(uint32(block.Tag), c.dataStore[c.blockIndex(block)])
				c.stats.Writebacks++
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}

func loadWord(data []byte, offset uint32) uint32 {
	return uint32(data[offset]) |
		uint32(data[offset+1])<<8 |
		uint32(data[offset+2])<<16 |
		uint32(data[offset+3])<<24
}

func storeWord(data []byte, offset uint32, value uint32) {
	data[offset] = byte(value)
	data[offset+1] = byte(value >> 8)
	data[offset+2] = byte(value >> 16)
	data[offset+3] = byte(value >> 24)
}
