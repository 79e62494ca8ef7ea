package latency_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrap/insts"
	"github.com/sarchlab/rvtrap/timing/latency"
)

var _ = Describe("Latency", func() {
	var (
		table   *latency.Table
		decoder *insts.Decoder
	)

	BeforeEach(func() {
		table = latency.NewTable()
		decoder = insts.NewDecoder()
	})

	Describe("Default Timing Values", func() {
		It("should have correct ALU latency", func() {
			Expect(table.Config().ALULatency).To(Equal(uint64(1)))
		})

		It("should have correct load latency", func() {
			Expect(table.Config().LoadLatency).To(Equal(uint64(2)))
		})

		It("should have correct trap entry and return latency", func() {
			config := table.Config()
			Expect(config.TrapEntryLatency).To(Equal(uint64(16)))
			Expect(config.TrapReturnLatency).To(Equal(uint64(16)))
		})
	})

	Describe("Instruction Latencies", func() {
		It("should return ALU latency for addi and lui", func() {
			Expect(table.GetLatency(decoder.Decode(insts.ADDI(1, 0, 5)))).To(Equal(uint64(1)))
			Expect(table.GetLatency(decoder.Decode(insts.LUI(1, 5)))).To(Equal(uint64(1)))
		})

		It("should return load latency for every load width", func() {
			for _, f3 := range []uint8{insts.Funct3LB, insts.Funct3LH, insts.Funct3LW, insts.Funct3LBU, insts.Funct3LHU} {
				Expect(table.GetLatency(decoder.Decode(insts.Load(f3, 1, 2, 0)))).To(Equal(uint64(2)))
			}
		})

		It("should return store latency for stores", func() {
			Expect(table.GetLatency(decoder.Decode(insts.Store(insts.Funct3SW, 1, 2, 0)))).To(Equal(uint64(1)))
		})

		It("should return branch latency for beq and bne", func() {
			Expect(table.GetLatency(decoder.Decode(insts.BEQ(1, 2, 8)))).To(Equal(uint64(1)))
			Expect(table.GetLatency(decoder.Decode(insts.BNE(1, 2, -8)))).To(Equal(uint64(1)))
		})

		It("should return syscall latency for ecall", func() {
			Expect(table.GetLatency(decoder.Decode(insts.ECALL))).To(Equal(uint64(1)))
		})
	})

	Describe("Trap Latency", func() {
		It("should charge a straddling store two reads and two writes", func() {
			// 16 entry + 8 decode + 2*2 reads + 2*1 writes + 16 return
			Expect(table.GetTrapLatency(2, 2)).To(Equal(uint64(46)))
		})

		It("should charge a single-word load one read", func() {
			Expect(table.GetTrapLatency(1, 0)).To(Equal(uint64(42)))
		})
	})

	Describe("Instruction Type Detection", func() {
		It("should detect loads and stores", func() {
			lw := decoder.Decode(insts.Load(insts.Funct3LW, 1, 2, 0))
			sh := decoder.Decode(insts.Store(insts.Funct3SH, 1, 2, 0))
			addi := decoder.Decode(insts.ADDI(1, 0, 1))

			Expect(table.IsLoadOp(lw)).To(BeTrue())
			Expect(table.IsStoreOp(lw)).To(BeFalse())
			Expect(table.IsStoreOp(sh)).To(BeTrue())
			Expect(table.IsMemoryOp(sh)).To(BeTrue())
			Expect(table.IsMemoryOp(addi)).To(BeFalse())
		})
	})

	Describe("Nil Instruction Handling", func() {
		It("should return 1 for nil instruction", func() {
			Expect(table.GetLatency(nil)).To(Equal(uint64(1)))
		})

		It("should return false for nil instruction memory check", func() {
			Expect(table.IsMemoryOp(nil)).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 2
			config.LoadLatency = 8
			config.WordReadLatency = 10
			customTable := latency.NewTableWithConfig(config)

			Expect(customTable.GetLatency(decoder.Decode(insts.ADDI(1, 0, 1)))).To(Equal(uint64(2)))
			Expect(customTable.GetLatency(decoder.Decode(insts.Load(insts.Funct3LW, 1, 2, 0)))).To(Equal(uint64(8)))
			Expect(customTable.GetTrapLatency(1, 0)).To(Equal(uint64(16 + 8 + 10 + 16)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject zero ALU latency", func() {
			config := latency.DefaultTimingConfig()
			config.ALULatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero trap entry latency", func() {
			config := latency.DefaultTimingConfig()
			config.TrapEntryLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero word read latency", func() {
			config := latency.DefaultTimingConfig()
			config.WordReadLatency = 0
			Expect(config.Validate()).To(HaveOccurred())
		})

		It("should reject zero branch latency", func() {
			config := latency.DefaultTimingConfig()
			config.BranchLatency = 0
			Expect(config.Validate()).To(MatchError(ContainSubstring("branch_latency")))
		})

		It("should accept a zero decode latency", func() {
			config := latency.DefaultTimingConfig()
			config.DecodeLatency = 0
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.ALULatency = 100

			Expect(original.ALULatency).To(Equal(uint64(1)))
			Expect(clone.ALULatency).To(Equal(uint64(100)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load config", func() {
			original := latency.DefaultTimingConfig()
			original.TrapEntryLatency = 40
			original.WordReadLatency = 10

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.TrapEntryLatency).To(Equal(uint64(40)))
			Expect(loaded.WordReadLatency).To(Equal(uint64(10)))
		})

		It("should keep defaults for fields missing from the file", func() {
			path := filepath.Join(tempDir, "partial.json")
			Expect(os.WriteFile(path, []byte(`{"decode_latency": 3}`), 0644)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.DecodeLatency).To(Equal(uint64(3)))
			Expect(loaded.TrapEntryLatency).To(Equal(uint64(16)))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
