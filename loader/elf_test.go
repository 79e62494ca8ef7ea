package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/insts"
	"github.com/sarchlab/rvtrap/loader"
)

const (
	machineRISCV = 243
	machine386   = 3
	ptLoad       = 1
	ptNote       = 4
	pfRX         = 0x5
	pfRW         = 0x6
)

var _ = Describe("ELF Loader", func() {
	var (
		tempDir string
		code    []byte
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "elf-loader-test")
		Expect(err).NotTo(HaveOccurred())

		// li a0, 42; ecall
		code = binary.LittleEndian.AppendUint32(nil, insts.ADDI(10, 0, 42))
		code = binary.LittleEndian.AppendUint32(code, insts.ECALL)
	})

	AfterEach(func() {
		_ = os.RemoveAll(tempDir)
	})

	Describe("Load", func() {
		Context("with a valid RV32 ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				writeELF32(elfPath, machineRISCV, 0x80000004, segment{
					typ: ptLoad, flags: pfRX, vaddr: 0x80000000, data: code,
				})
			})

			It("should load without error", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog).NotTo(BeNil())
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x80000004)))
			})

			It("should set up initial stack pointer", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.InitialSP).To(Equal(loader.DefaultStackTop))
			})

			It("should report segment contents and permissions", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))

				seg := prog.Segments[0]
				Expect(seg.VirtAddr).To(Equal(uint32(0x80000000)))
				Expect(seg.Data).To(Equal(code))
				Expect(seg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagRead).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagWrite).To(BeZero())
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				err := os.WriteFile(notElfPath, []byte("not an elf file"), 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(notElfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("ELF"))
			})

			It("should return error for empty file", func() {
				emptyPath := filepath.Join(tempDir, "empty.elf")
				err := os.WriteFile(emptyPath, []byte{}, 0644)
				Expect(err).NotTo(HaveOccurred())

				_, err = loader.Load(emptyPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with a non-RISC-V ELF", func() {
			It("should return error for an i386 ELF", func() {
				elfPath := filepath.Join(tempDir, "i386.elf")
				writeELF32(elfPath, machine386, 0)

				_, err := loader.Load(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not a RISC-V"))
			})
		})

		Context("with a 64-bit ELF", func() {
			It("should return error for a 64-bit ELF", func() {
				elfPath := filepath.Join(tempDir, "elf64.elf")
				createMinimal64BitELF(elfPath)

				_, err := loader.Load(elfPath)
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("not a 32-bit"))
			})
		})
	})

	Describe("Multi-segment ELFs", func() {
		It("should load multiple PT_LOAD segments", func() {
			elfPath := filepath.Join(tempDir, "multi-segment.elf")
			data := []byte{0x01, 0x02, 0x03, 0x04}
			writeELF32(elfPath, machineRISCV, 0x1000,
				segment{typ: ptLoad, flags: pfRX, vaddr: 0x1000, data: code},
				segment{typ: ptLoad, flags: pfRW, vaddr: 0x8000, data: data},
			)

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))

			Expect(prog.Segments[0].Data).To(Equal(code))
			Expect(prog.Segments[1].VirtAddr).To(Equal(uint32(0x8000)))
			Expect(prog.Segments[1].Data).To(Equal(data))
			Expect(prog.Segments[1].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		})
	})

	Describe("BSS segments", func() {
		It("should handle BSS segments where Memsz > Filesz", func() {
			elfPath := filepath.Join(tempDir, "bss.elf")
			initialData := []byte{0x01, 0x02, 0x03, 0x04}
			writeELF32(elfPath, machineRISCV, 0x1000, segment{
				typ: ptLoad, flags: pfRW, vaddr: 0x6000, data: initialData, memsz: 1024,
			})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].Data).To(Equal(initialData))
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(1024)))
		})

		It("should handle segments with zero file size", func() {
			elfPath := filepath.Join(tempDir, "zero-filesz.elf")
			writeELF32(elfPath, machineRISCV, 0x1000, segment{
				typ: ptLoad, flags: pfRW, vaddr: 0x7000, memsz: 4096,
			})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			Expect(prog.Segments[0].Data).To(BeEmpty())
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(4096)))
		})
	})

	Describe("ELFs with no loadable segments", func() {
		It("should return empty segments list for ELF with no PT_LOAD", func() {
			elfPath := filepath.Join(tempDir, "no-load.elf")
			writeELF32(elfPath, machineRISCV, 0x1000, segment{typ: ptNote, flags: 0x4})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(BeEmpty())
			Expect(prog.EntryPoint).To(Equal(uint32(0x1000)))
		})
	})

	Describe("LoadInto", func() {
		It("should copy segments and clear the BSS tail", func() {
			elfPath := filepath.Join(tempDir, "run.elf")
			writeELF32(elfPath, machineRISCV, 0x1000,
				segment{typ: ptLoad, flags: pfRX, vaddr: 0x1000, data: code},
				segment{typ: ptLoad, flags: pfRW, vaddr: 0x2000, data: []byte{0xAA}, memsz: 8},
			)
			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory()
			memory.WriteWord(0x2004, 0xFFFFFFFF)
			prog.LoadInto(memory)

			Expect(memory.ReadWord(0x1000)).To(Equal(insts.ADDI(10, 0, 42)))
			Expect(memory.ReadWord(0x2000)).To(Equal(uint32(0xAA)))
			Expect(memory.ReadWord(0x2004)).To(BeZero())
		})

		It("should produce a runnable image", func() {
			elfPath := filepath.Join(tempDir, "run.elf")
			writeELF32(elfPath, machineRISCV, 0x1000,
				segment{typ: ptLoad, flags: pfRX, vaddr: 0x1000, data: code})
			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())

			memory := emu.NewMemory()
			prog.LoadInto(memory)
			e := emu.NewEmulator(memory)
			e.SetPC(prog.EntryPoint)

			Expect(e.Run()).To(Equal(int64(42)))
		})
	})
})

type segment struct {
	typ   uint32
	flags uint32
	vaddr uint32
	data  []byte
	memsz uint32
}

// writeELF32 writes a little-endian ELF32 executable with the given
// program headers. A zero memsz means memsz equals the file size.
func writeELF32(path string, machine uint16, entry uint32, segs ...segment) {
	const ehsize, phentsize = 52, 32

	elfHeader := make([]byte, ehsize)
	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 1 // 32-bit
	elfHeader[5] = 1 // little endian
	elfHeader[6] = 1 // version

	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)         // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machine)   // machine
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)         // version
	binary.LittleEndian.PutUint32(elfHeader[24:28], entry)     // entry
	binary.LittleEndian.PutUint32(elfHeader[28:32], ehsize)    // phoff
	binary.LittleEndian.PutUint16(elfHeader[40:42], ehsize)    // ehsize
	binary.LittleEndian.PutUint16(elfHeader[42:44], phentsize) // phentsize
	binary.LittleEndian.PutUint16(elfHeader[44:46], uint16(len(segs)))

	offset := uint32(ehsize + phentsize*len(segs))
	var headers, payload []byte
	for _, s := range segs {
		memsz := s.memsz
		if memsz == 0 {
			memsz = uint32(len(s.data))
		}

		ph := make([]byte, phentsize)
		binary.LittleEndian.PutUint32(ph[0:4], s.typ)
		binary.LittleEndian.PutUint32(ph[4:8], offset)
		binary.LittleEndian.PutUint32(ph[8:12], s.vaddr)
		binary.LittleEndian.PutUint32(ph[12:16], s.vaddr)
		binary.LittleEndian.PutUint32(ph[16:20], uint32(len(s.data)))
		binary.LittleEndian.PutUint32(ph[20:24], memsz)
		binary.LittleEndian.PutUint32(ph[24:28], s.flags)
		binary.LittleEndian.PutUint32(ph[28:32], 4)

		headers = append(headers, ph...)
		payload = append(payload, s.data...)
		offset += uint32(len(s.data))
	}

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
	_, _ = file.Write(headers)
	_, _ = file.Write(payload)
}

// createMinimal64BitELF creates a minimal 64-bit ELF to test rejection.
func createMinimal64BitELF(path string) {
	elfHeader := make([]byte, 64)

	copy(elfHeader[0:4], []byte{0x7f, 'E', 'L', 'F'})
	elfHeader[4] = 2                                              // 64-bit (ELFCLASS64)
	elfHeader[5] = 1                                              // little endian
	elfHeader[6] = 1                                              // version
	binary.LittleEndian.PutUint16(elfHeader[16:18], 2)            // executable
	binary.LittleEndian.PutUint16(elfHeader[18:20], machineRISCV) // RISC-V
	binary.LittleEndian.PutUint32(elfHeader[20:24], 1)            // version
	binary.LittleEndian.PutUint16(elfHeader[52:54], 64)           // ehsize

	file, _ := os.Create(path)
	defer func() { _ = file.Close() }()
	_, _ = file.Write(elfHeader)
}
