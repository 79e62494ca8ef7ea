package main

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvtrap/benchmarks"
	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/loader"
	"github.com/sarchlab/rvtrap/timing/cache"
	"github.com/sarchlab/rvtrap/timing/latency"
	"github.com/sarchlab/rvtrap/trap"
)

const regSP uint8 = 2

type runConfig struct {
	// timing enables cycle accounting; nil leaves it off
	timing   *latency.TimingConfig
	dcache   bool
	maxSteps uint64
	logger   *logrus.Logger
	stdout   io.Writer
	stderr   io.Writer
}

// machine is a hart, the memory behind it and the console in front of it.
type machine struct {
	cfg    runConfig
	memory *emu.Memory
	dcache *cache.WordPort
	uart   *emu.QuasiUART
	hart   *emu.Emulator
}

func newMachine(cfg runConfig) *machine {
	m := &machine{
		cfg:    cfg,
		memory: emu.NewMemory(),
		uart:   emu.NewQuasiUART(cfg.stdout),
	}

	var ram emu.WordPort = m.memory
	if cfg.dcache {
		m.dcache = cache.NewWordPort(cache.New(cache.DefaultConfig(), cache.NewMemoryBacking(m.memory)))
		ram = m.dcache
	}

	opts := []emu.EmulatorOption{
		emu.WithTrapHandler(trap.NewHandler()),
		emu.WithMaxInstructions(cfg.maxSteps),
		emu.WithLogger(cfg.logger),
		emu.WithStdout(cfg.stderr),
	}
	if cfg.timing != nil {
		opts = append(opts, emu.WithLatencyTable(latency.NewTableWithConfig(cfg.timing)))
	}

	m.hart = emu.NewEmulator(emu.NewBus(ram, m.uart), opts...)
	return m
}

// loadProgram places an ELF image in memory and services ECALL as Linux
// write and exit.
func (m *machine) loadProgram(prog *loader.Program) {
	prog.LoadInto(m.memory)
	m.hart.RegFile().WriteReg(regSP, prog.InitialSP)
	m.hart.SetPC(prog.EntryPoint)
	m.hart.SetSyscallHandler(emu.NewDefaultSyscallHandler(
		m.hart.RegFile(), m.hart.Port(), m.cfg.stdout, m.cfg.stderr))
}

// loadSmoke places the built-in smoke test in memory. It exits with the
// number of failed checks.
func (m *machine) loadSmoke() {
	smoke := benchmarks.Smoke()
	m.memory.LoadBytes(benchmarks.ProgramBase, smoke.Program)
	m.hart.SetPC(benchmarks.ProgramBase)
}

func (m *machine) run() int64 {
	return m.hart.Run()
}

func (m *machine) cycles() uint64 {
	cycles := m.hart.Stats().Cycles
	if m.dcache != nil {
		cycles += m.dcache.Cycles()
	}
	return cycles
}

// report prints the run summary.
func (m *machine) report(w io.Writer, name string, exitCode int64) {
	stats := m.hart.Stats()

	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Program: %s\n", name)
	_, _ = fmt.Fprintf(w, "Exit code: %d\n", exitCode)
	if halted, err := m.hart.Halted(); halted {
		_, _ = fmt.Fprintf(w, "Halted: %v\n", err)
	}
	_, _ = fmt.Fprintf(w, "Instructions: %d\n", stats.Instructions)

	if m.cfg.timing != nil {
		cycles := m.cycles()
		_, _ = fmt.Fprintf(w, "Cycles: %d\n", cycles)
		if stats.Instructions > 0 {
			_, _ = fmt.Fprintf(w, "CPI: %.2f\n", float64(cycles)/float64(stats.Instructions))
		}
	}

	_, _ = fmt.Fprintf(w, "\n")
	_, _ = fmt.Fprintf(w, "Traps:\n")
	_, _ = fmt.Fprintf(w, "  Taken:             %d\n", stats.Traps)
	_, _ = fmt.Fprintf(w, "  Interrupts:        %d\n", stats.Interrupts)
	_, _ = fmt.Fprintf(w, "  Misaligned loads:  %d\n", stats.MisalignedLoads)
	_, _ = fmt.Fprintf(w, "  Misaligned stores: %d\n", stats.MisalignedStores)
	_, _ = fmt.Fprintf(w, "  Word reads:        %d\n", stats.TrapWordReads)
	_, _ = fmt.Fprintf(w, "  Word writes:       %d\n", stats.TrapWordWrites)

	if m.dcache != nil {
		cs := m.dcache.Cache().Stats()
		_, _ = fmt.Fprintf(w, "\n")
		_, _ = fmt.Fprintf(w, "D-Cache:\n")
		_, _ = fmt.Fprintf(w, "  Hits:       %d\n", cs.Hits)
		_, _ = fmt.Fprintf(w, "  Misses:     %d\n", cs.Misses)
		_, _ = fmt.Fprintf(w, "  Writebacks: %d\n", cs.Writebacks)
	}
}
