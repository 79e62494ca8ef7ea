package benchmarks

import (
	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/insts"
)

// ABI registers used by the programs.
const (
	regT0 uint8 = 5
	regA0 uint8 = 10
	regA1 uint8 = 11
	regA2 uint8 = 12
	regA3 uint8 = 13
)

// dataBase is the start of the scratch area the programs read and write.
const dataBase uint32 = 0x8000

// Console messages of the smoke test.
const (
	MsgHello       = "Hello from kernel"
	MsgWordFine    = "Unaligned u32 store/load is fine"
	MsgWordBroken  = "Unaligned u32 store/load is broken"
	MsgHalfFine    = "Unaligned u16 store/load is fine"
	MsgHalfBroken  = "Unaligned u16 store/load is broken"
	smokeWordAddr  = 0x17
	smokeHalfAddr  = 0x23
	smokeWordValue = 0x12345678
	smokeHalfValue = 0x1234
)

// GetMicrobenchmarks returns the standard set of trap-path benchmarks.
// Each one isolates a class of access.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		alignedBaseline(),
		halfwordInWord(),
		straddlingLoads(),
		straddlingStores(),
		byteStores(),
		misalignedCopyLoop(),
		Smoke(),
	}
}

// GetCoreBenchmarks returns a minimal set for quick validation.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		alignedBaseline(),
		straddlingLoads(),
		Smoke(),
	}
}

// Smoke stores 0x12345678 at 0x17 and 0x1234 at 0x23, reads both back and
// reports each check on the quasi-UART. It exits with the number of
// failed checks.
func Smoke() Benchmark {
	code := ConsoleWrite(MsgHello)
	code = append(code, insts.ADDI(regA0, 0, 0))

	code = append(code, insts.LoadImmediate(regA1, smokeWordValue)...)
	code = append(code,
		insts.Store(insts.Funct3SW, 0, regA1, smokeWordAddr),
		insts.Load(insts.Funct3LW, regA2, 0, smokeWordAddr),
	)
	code = append(code, check(MsgWordFine, MsgWordBroken)...)

	code = append(code, insts.LoadImmediate(regA1, smokeHalfValue)...)
	code = append(code,
		insts.Store(insts.Funct3SH, 0, regA1, smokeHalfAddr),
		insts.Load(insts.Funct3LHU, regA2, 0, smokeHalfAddr),
	)
	code = append(code, check(MsgHalfFine, MsgHalfBroken)...)

	code = append(code, insts.ECALL)

	return Benchmark{
		Name:         "smoke",
		Description:  "cross-word u32 and u16 store/load round trips reported on the console",
		Program:      BuildProgram(code...),
		ExpectedExit: 0,
	}
}

// check compares a1 with a2, prints fine or broken and counts a failure
// in a0.
func check(fine, broken string) []uint32 {
	fineCode := ConsoleWrite(fine)
	brokenCode := append(ConsoleWrite(broken), insts.ADDI(regA0, regA0, 1))

	code := []uint32{insts.BNE(regA1, regA2, int32(len(fineCode)+2)*4)}
	code = append(code, fineCode...)
	code = append(code, insts.BEQ(0, 0, int32(len(brokenCode)+1)*4))
	return append(code, brokenCode...)
}

// ConsoleWrite returns code that sends s and its terminator to the
// quasi-UART data register. It clobbers t0.
func ConsoleWrite(s string) []uint32 {
	var code []uint32
	for _, w := range emu.PackMessage(s) {
		code = append(code, insts.LoadImmediate(regT0, w)...)
		code = append(code, insts.Store(insts.Funct3SW, 0, regT0, int32(emu.QuasiUARTAddress)))
	}
	return code
}

// seedData fills n words at dataBase with a counting byte pattern.
func seedData(n int) func(*emu.RegFile, *emu.Memory) {
	return func(regFile *emu.RegFile, memory *emu.Memory) {
		for i := 0; i < n*4; i++ {
			memory.Write8(dataBase+uint32(i), byte(i+1))
		}
		regFile.WriteReg(regA1, dataBase)
	}
}

// unrolled repeats one access at 16 consecutive word slots.
func unrolled(access func(slot int32) uint32) []uint32 {
	code := make([]uint32, 0, 17)
	for i := int32(0); i < 16; i++ {
		code = append(code, access(i*4))
	}
	return code
}

// 1. Aligned baseline - no traps
func alignedBaseline() Benchmark {
	code := unrolled(func(off int32) uint32 {
		return insts.Load(insts.Funct3LW, regA2, regA1, off)
	})
	code = append(code, unrolled(func(off int32) uint32 {
		return insts.Store(insts.Funct3SW, regA1, regA2, off+64)
	})...)
	code = append(code, insts.Load(insts.Funct3LBU, regA0, regA1, 0), insts.ECALL)

	return Benchmark{
		Name:         "aligned_baseline",
		Description:  "16 aligned LW + 16 aligned SW - native memory cost",
		Setup:        seedData(32),
		Program:      BuildProgram(code...),
		ExpectedExit: 1,
	}
}

// 2. Halfword in word - single-word emulation
func halfwordInWord() Benchmark {
	code := unrolled(func(off int32) uint32 {
		return insts.Load(insts.Funct3LHU, regA0, regA1, off+1)
	})
	code = append(code, insts.ECALL)

	return Benchmark{
		Name:        "halfword_in_word",
		Description: "16 LHU at offset 1 - trap with one word read each",
		Setup:       seedData(16),
		Program:     BuildProgram(code...),
		// the last load reads pattern bytes 62 and 63
		ExpectedExit: 62 | 63<<8,
	}
}

// 3. Straddling loads - two word reads per trap
func straddlingLoads() Benchmark {
	code := unrolled(func(off int32) uint32 {
		return insts.Load(insts.Funct3LW, regA0, regA1, off+3)
	})
	code = append(code, insts.Load(insts.Funct3LBU, regA0, regA1, 63), insts.ECALL)

	return Benchmark{
		Name:         "straddling_loads",
		Description:  "16 LW at offset 3 - trap with two word reads each",
		Setup:        seedData(17),
		Program:      BuildProgram(code...),
		ExpectedExit: 64,
	}
}

// 4. Straddling stores - two reads and two writes per trap
func straddlingStores() Benchmark {
	code := insts.LoadImmediate(regA2, 0x0A0B0C0D)
	code = append(code, unrolled(func(off int32) uint32 {
		return insts.Store(insts.Funct3SW, regA1, regA2, off+2)
	})...)
	code = append(code, insts.Load(insts.Funct3LBU, regA0, regA1, 65), insts.ECALL)

	return Benchmark{
		Name:         "straddling_stores",
		Description:  "16 SW at offset 2 - trap with two reads and two writes each",
		Setup:        seedData(17),
		Program:      BuildProgram(code...),
		ExpectedExit: 0x0A,
	}
}

// 5. Byte stores - never misaligned
func byteStores() Benchmark {
	code := []uint32{insts.ADDI(regA2, 0, 0x5A)}
	for off := int32(0); off < 16; off++ {
		code = append(code, insts.Store(insts.Funct3SB, regA1, regA2, off))
	}
	code = append(code, insts.Load(insts.Funct3LBU, regA0, regA1, 15), insts.ECALL)

	return Benchmark{
		Name:         "byte_stores",
		Description:  "16 SB at every offset - read-modify-write without traps",
		Setup:        seedData(4),
		Program:      BuildProgram(code...),
		ExpectedExit: 0x5A,
	}
}

// 6. Misaligned copy loop - load at offset 1, store at offset 2
func misalignedCopyLoop() Benchmark {
	code := []uint32{
		insts.ADDI(regA3, 0, 8),         // count
		insts.ADDI(regA2, regA1, 0x100), // destination
		// loop:
		insts.Load(insts.Funct3LW, regT0, regA1, 1),
		insts.Store(insts.Funct3SW, regA2, regT0, 2),
		insts.ADDI(regA1, regA1, 4),
		insts.ADDI(regA2, regA2, 4),
		insts.ADDI(regA3, regA3, -1),
		insts.BNE(regA3, 0, -5*4),
		insts.Load(insts.Funct3LBU, regA0, regA2, 1), // last byte copied
		insts.ECALL,
	}

	return Benchmark{
		Name:         "misaligned_copy_loop",
		Description:  "8-iteration word copy between differently misaligned buffers",
		Setup:        seedData(9),
		Program:      BuildProgram(code...),
		ExpectedExit: 33,
	}
}
