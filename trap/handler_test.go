package trap_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/insts"
	"github.com/sarchlab/rvtrap/trap"
)

var _ = Describe("Cause and status decoding", func() {
	It("should split the interrupt flag from the code", func() {
		c := trap.DecodeCause(0x80000007)
		Expect(c.Interrupt).To(BeTrue())
		Expect(c.Code).To(Equal(uint32(7)))

		c = trap.DecodeCause(6)
		Expect(c.Interrupt).To(BeFalse())
		Expect(c.Code).To(Equal(uint32(6)))
	})

	DescribeTable("should classify misaligned access exceptions",
		func(mcause uint32, expected bool) {
			Expect(trap.DecodeCause(mcause).IsMisalignedAccess()).To(Equal(expected))
		},
		Entry("instruction misaligned", uint32(0), true),
		Entry("load misaligned", uint32(4), true),
		Entry("store misaligned", uint32(6), true),
		Entry("illegal instruction", uint32(2), false),
		Entry("load access fault", uint32(5), false),
		Entry("ecall from M", uint32(11), false),
		Entry("interrupt with code 4", uint32(0x80000004), false),
	)

	It("should name causes", func() {
		Expect(trap.DecodeCause(4).String()).To(Equal("load address misaligned"))
		Expect(trap.DecodeCause(0x80000003).String()).To(Equal("interrupt 3"))
		Expect(trap.DecodeCause(13).String()).To(Equal("exception 13"))
	})

	DescribeTable("should require translation only below machine mode with paging on",
		func(prev emu.Privilege, mode emu.TranslationMode, expected bool) {
			s := trap.DecodeStatus(emu.ComposeMStatus(prev), emu.ComposeSATP(mode))
			Expect(s.Previous).To(Equal(prev))
			Expect(s.Translation).To(Equal(mode))
			Expect(s.NeedsTranslation()).To(Equal(expected))
		},
		Entry("machine, bare", emu.PrivMachine, emu.TranslationBare, false),
		Entry("machine, sv32", emu.PrivMachine, emu.TranslationSv32, false),
		Entry("supervisor, bare", emu.PrivSupervisor, emu.TranslationBare, false),
		Entry("supervisor, sv32", emu.PrivSupervisor, emu.TranslationSv32, true),
		Entry("user, sv32", emu.PrivUser, emu.TranslationSv32, true),
	)

	It("should ignore mstatus bits outside MPP", func() {
		s := trap.DecodeStatus(0xFFFFE7FF, 0x7FFFFFFF)
		Expect(s.Previous).To(Equal(emu.PrivUser))
		Expect(s.Translation).To(Equal(emu.TranslationBare))
	})
})

var _ = Describe("Handler", func() {
	var (
		regs    *emu.RegFile
		port    *recordingPort
		handler *trap.Handler
	)

	exception := func(code, tval uint32) *trap.Frame {
		return &trap.Frame{
			Regs:   regs,
			Mem:    port,
			Status: trap.Snapshot{Previous: emu.PrivMachine},
			Code:   code,
			PC:     faultPC,
			TVal:   tval,
		}
	}

	BeforeEach(func() {
		regs = &emu.RegFile{}
		port = newRecordingPort()
		handler = trap.NewHandler()
	})

	Describe("HandleException", func() {
		It("should emulate a misaligned load", func() {
			regs.WriteReg(regBase, 0x10)
			port.mem.WriteWord(0x10, 0xAABBCCDD)
			port.mem.WriteWord(0x14, 0x11223344)

			nextPC, err := handler.HandleException(exception(emu.CauseLoadMisaligned, 0x00159503))

			Expect(err).NotTo(HaveOccurred())
			Expect(nextPC).To(Equal(faultPC + 4))
			Expect(regs.ReadReg(regDest)).To(Equal(uint32(0xFFFFBBCC)))
		})

		It("should emulate a misaligned store", func() {
			regs.WriteReg(regBase, 0x17)
			regs.WriteReg(regValue, 0x12345678)

			nextPC, err := handler.HandleException(exception(emu.CauseStoreMisaligned,
				insts.Store(insts.Funct3SW, regBase, regValue, 0)))

			Expect(err).NotTo(HaveOccurred())
			Expect(nextPC).To(Equal(faultPC + 4))
			Expect(readLE(port.mem, 0x17, 4)).To(Equal(uint32(0x12345678)))
		})

		It("should route by the instruction, not by the cause code", func() {
			regs.WriteReg(regBase, 0x21)
			regs.WriteReg(regValue, 0xBEEF)

			_, err := handler.HandleException(exception(emu.CauseLoadMisaligned,
				insts.Store(insts.Funct3SH, regBase, regValue, 0)))

			Expect(err).NotTo(HaveOccurred())
			Expect(readLE(port.mem, 0x21, 2)).To(Equal(uint32(0xBEEF)))
		})

		DescribeTable("should halt on causes it does not emulate",
			func(code uint32) {
				_, err := handler.HandleException(exception(code, 0x00159503))

				Expect(errors.Is(err, trap.ErrUnsupportedCause)).To(BeTrue())
				var hlt *trap.Halt
				Expect(errors.As(err, &hlt)).To(BeTrue())
				Expect(hlt.Cause).To(Equal(trap.Cause{Code: code}))
				Expect(hlt.PC).To(Equal(faultPC))
				Expect(port.accesses()).To(BeEmpty())
			},
			Entry("illegal instruction", emu.CauseIllegalInstruction),
			Entry("load access fault", uint32(5)),
			Entry("ecall", emu.CauseEnvCallFromM),
		)

		It("should halt when the trapped code ran with translation on", func() {
			f := exception(emu.CauseLoadMisaligned, 0x00159503)
			f.Status = trap.Snapshot{Previous: emu.PrivSupervisor, Translation: emu.TranslationSv32}

			_, err := handler.HandleException(f)

			Expect(errors.Is(err, trap.ErrTranslationRequired)).To(BeTrue())
			Expect(port.accesses()).To(BeEmpty())
		})

		It("should handle a supervisor fault with bare translation", func() {
			regs.WriteReg(regBase, 0x11)
			f := exception(emu.CauseLoadMisaligned, insts.Load(insts.Funct3LHU, regDest, regBase, 0))
			f.Status = trap.Snapshot{Previous: emu.PrivSupervisor, Translation: emu.TranslationBare}

			_, err := handler.HandleException(f)

			Expect(err).NotTo(HaveOccurred())
		})

		It("should halt on an opcode that is neither load nor store", func() {
			_, err := handler.HandleException(exception(emu.CauseLoadMisaligned, insts.ADDI(1, 1, 1)))

			Expect(errors.Is(err, trap.ErrInvalidInstruction)).To(BeTrue())
			var hlt *trap.Halt
			Expect(errors.As(err, &hlt)).To(BeTrue())
			Expect(hlt.Instr).To(Equal(insts.ADDI(1, 1, 1)))
			Expect(hlt.Cause.Code).To(Equal(emu.CauseLoadMisaligned))
		})

		It("should treat an instruction-misaligned fault like the others", func() {
			regs.WriteReg(regBase, 0x31)
			port.mem.WriteWord(0x30, 0x0000AB00)

			_, err := handler.HandleException(exception(emu.CauseInstructionMisaligned,
				insts.Load(insts.Funct3LBU, regDest, regBase, 0)))

			Expect(err).NotTo(HaveOccurred())
			Expect(regs.ReadReg(regDest)).To(Equal(uint32(0xAB)))
		})

		It("should describe the halt", func() {
			_, err := handler.HandleException(exception(emu.CauseStoreMisaligned, insts.Store(5, 1, 2, 0)))

			Expect(err).To(MatchError(ContainSubstring("invalid instruction")))
			Expect(err).To(MatchError(ContainSubstring("store address misaligned")))
			Expect(err).To(MatchError(ContainSubstring("pc 0x00008000")))
		})

		Context("with instruction fetch", func() {
			BeforeEach(func() {
				handler = trap.NewHandler(trap.WithInstructionFetch())
			})

			It("should read the faulting instruction at the PC", func() {
				port.mem.WriteWord(faultPC, 0x00159503)
				regs.WriteReg(regBase, 0x10)
				port.mem.WriteWord(0x10, 0xAABBCCDD)

				_, err := handler.HandleException(exception(emu.CauseLoadMisaligned, 0))

				Expect(err).NotTo(HaveOccurred())
				Expect(regs.ReadReg(regDest)).To(Equal(uint32(0xFFFFBBCC)))
				Expect(port.reads[0]).To(Equal(faultPC))
			})

			It("should halt when the PC itself is misaligned", func() {
				f := exception(emu.CauseInstructionMisaligned, 0)
				f.PC = faultPC + 2

				_, err := handler.HandleException(f)

				Expect(errors.Is(err, trap.ErrInvalidInstruction)).To(BeTrue())
				Expect(port.accesses()).To(BeEmpty())
			})
		})
	})

	Describe("HandleInterrupt", func() {
		It("should halt without a vector table", func() {
			_, err := handler.HandleInterrupt(emu.InterruptMachineTimer, faultPC)

			Expect(errors.Is(err, trap.ErrUnsupportedCause)).To(BeTrue())
			var hlt *trap.Halt
			Expect(errors.As(err, &hlt)).To(BeTrue())
			Expect(hlt.Cause).To(Equal(trap.Cause{Interrupt: true, Code: emu.InterruptMachineTimer}))
		})

		It("should run the registered handler and resume at the interrupted PC", func() {
			var got []uint32
			vt := trap.NewVectorTable(16, nil)
			Expect(vt.Register(emu.InterruptMachineTimer, func(code uint32) {
				got = append(got, code)
			})).To(BeTrue())
			handler = trap.NewHandler(trap.WithVectorTable(vt))

			nextPC, err := handler.HandleInterrupt(emu.InterruptMachineTimer, faultPC)

			Expect(err).NotTo(HaveOccurred())
			Expect(nextPC).To(Equal(faultPC))
			Expect(got).To(Equal([]uint32{emu.InterruptMachineTimer}))
		})

		It("should fall back to the default handler", func() {
			var fallback []uint32
			vt := trap.NewVectorTable(4, func(code uint32) {
				fallback = append(fallback, code)
			})
			handler = trap.NewHandler(trap.WithVectorTable(vt))

			_, err := handler.HandleInterrupt(2, faultPC)
			Expect(err).NotTo(HaveOccurred())
			_, err = handler.HandleInterrupt(emu.InterruptMachineExternal, faultPC)
			Expect(err).NotTo(HaveOccurred())

			Expect(fallback).To(Equal([]uint32{2, emu.InterruptMachineExternal}))
		})
	})

	Describe("HandleTrap", func() {
		It("should decode raw CSRs", func() {
			regs.WriteReg(regBase, 0x10)
			port.mem.WriteWord(0x10, 0xAABBCCDD)

			nextPC, err := handler.HandleTrap(&emu.TrapContext{
				Regs:    regs,
				Mem:     port,
				MCause:  emu.ComposeMCause(false, emu.CauseLoadMisaligned),
				MStatus: emu.ComposeMStatus(emu.PrivMachine),
				SATP:    emu.ComposeSATP(emu.TranslationSv32),
				MEPC:    faultPC,
				MTVAL:   0x00159503,
			})

			Expect(err).NotTo(HaveOccurred())
			Expect(nextPC).To(Equal(faultPC + 4))
			Expect(regs.ReadReg(regDest)).To(Equal(uint32(0xFFFFBBCC)))
		})

		It("should see a user-mode fault under sv32 as needing translation", func() {
			_, err := handler.HandleTrap(&emu.TrapContext{
				Regs:    regs,
				Mem:     port,
				MCause:  emu.ComposeMCause(false, emu.CauseStoreMisaligned),
				MStatus: emu.ComposeMStatus(emu.PrivUser),
				SATP:    emu.ComposeSATP(emu.TranslationSv32),
				MEPC:    faultPC,
				MTVAL:   insts.Store(insts.Funct3SW, 1, 2, 0),
			})

			Expect(errors.Is(err, trap.ErrTranslationRequired)).To(BeTrue())
		})

		It("should route interrupts by the mcause flag", func() {
			_, err := handler.HandleTrap(&emu.TrapContext{
				Regs:   regs,
				Mem:    port,
				MCause: emu.ComposeMCause(true, emu.CauseLoadMisaligned),
				MEPC:   faultPC,
				MTVAL:  0x00159503,
			})

			var hlt *trap.Halt
			Expect(errors.As(err, &hlt)).To(BeTrue())
			Expect(hlt.Cause.Interrupt).To(BeTrue())
			Expect(port.accesses()).To(BeEmpty())
		})
	})
})

var _ = Describe("VectorTable", func() {
	It("should refuse codes outside the table", func() {
		vt := trap.NewVectorTable(4, nil)
		Expect(vt.Register(4, func(uint32) {})).To(BeFalse())
		Expect(vt.Register(3, func(uint32) {})).To(BeTrue())
	})

	It("should return a callable fallback when none was given", func() {
		vt := trap.NewVectorTable(0, nil)
		Expect(func() { vt.Lookup(9)(9) }).NotTo(Panic())
	})
})

var _ = Describe("Halt", func() {
	DescribeTable("should unwrap to its sentinel",
		func(kind trap.Kind, sentinel error) {
			err := error(&trap.Halt{Kind: kind})
			Expect(errors.Is(err, sentinel)).To(BeTrue())
			Expect(kind.String()).To(Equal(sentinel.Error()))
		},
		Entry("unsupported cause", trap.KindUnsupportedCause, trap.ErrUnsupportedCause),
		Entry("translation required", trap.KindTranslationRequired, trap.ErrTranslationRequired),
		Entry("invalid instruction", trap.KindInvalidInstruction, trap.ErrInvalidInstruction),
		Entry("address overflow", trap.KindAddressOverflow, trap.ErrAddressOverflow),
	)
})
