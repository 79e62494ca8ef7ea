// Package benchmarks provides RV32 test programs and a harness that runs
// them on the trapping hart and reports the cost of the misaligned-access
// trap path.
package benchmarks

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/timing/cache"
	"github.com/sarchlab/rvtrap/timing/latency"
	"github.com/sarchlab/rvtrap/trap"
)

// ProgramBase is where the harness loads every program.
const ProgramBase uint32 = 0x1000

// BenchmarkResult holds the results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is core cycles plus cache cycles when the cache is on
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired counts native and emulated instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	Traps            uint64 `json:"traps"`
	MisalignedLoads  uint64 `json:"misaligned_loads"`
	MisalignedStores uint64 `json:"misaligned_stores"`

	// TrapWordReads/Writes are the aligned accesses issued by the handler
	TrapWordReads  uint64 `json:"trap_word_reads"`
	TrapWordWrites uint64 `json:"trap_word_writes"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// Console holds the lines printed through the quasi-UART
	Console []string `json:"console,omitempty"`

	// ExitCode is the program's exit code, -1 on a halt
	ExitCode int64 `json:"exit_code"`

	// Halt is the halt reason, if the hart halted
	Halt string `json:"halt,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares registers and memory before the program starts
	Setup func(regFile *emu.RegFile, memory *emu.Memory)

	// Program is the RV32 machine code to execute
	Program []byte

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int64
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableDCache puts the Akita data cache between the hart and memory
	EnableDCache bool

	// CacheConfig is used when EnableDCache is set
	CacheConfig cache.Config

	// Timing is the cost model; nil uses the defaults
	Timing *latency.TimingConfig

	// MaxInstructions bounds each run; 0 means no limit
	MaxInstructions uint64

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Logger receives hart diagnostics (default: errors only, to stderr)
	Logger *logrus.Logger

	// Verbose echoes console output while running
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableDCache:    true,
		CacheConfig:     cache.DefaultConfig(),
		Timing:          latency.DefaultTimingConfig(),
		MaxInstructions: 1_000_000,
		Output:          os.Stdout,
		Verbose:         false,
	}
}

// Harness runs benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Timing == nil {
		config.Timing = latency.DefaultTimingConfig()
	}
	if config.Logger == nil {
		config.Logger = logrus.New()
		config.Logger.SetLevel(logrus.ErrorLevel)
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		results = append(results, h.runBenchmark(bench))
	}

	return results
}

// runBenchmark executes a single benchmark on a fresh machine.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	memory := emu.NewMemory()
	memory.LoadBytes(ProgramBase, bench.Program)

	var ram emu.WordPort = memory
	var dcache *cache.WordPort
	if h.config.EnableDCache {
		dcache = cache.NewWordPort(cache.New(h.config.CacheConfig, cache.NewMemoryBacking(memory)))
		ram = dcache
	}

	var console io.Writer
	if h.config.Verbose {
		console = h.config.Output
	}
	uart := emu.NewQuasiUART(console)

	e := emu.NewEmulator(emu.NewBus(ram, uart),
		emu.WithTrapHandler(trap.NewHandler()),
		emu.WithLatencyTable(latency.NewTableWithConfig(h.config.Timing)),
		emu.WithMaxInstructions(h.config.MaxInstructions),
		emu.WithLogger(h.config.Logger),
		emu.WithStdout(io.Discard),
	)

	if bench.Setup != nil {
		bench.Setup(e.RegFile(), memory)
	}
	e.SetPC(ProgramBase)

	start := time.Now()
	exitCode := e.Run()
	wallTime := time.Since(start)

	stats := e.Stats()
	result := BenchmarkResult{
		Name:                bench.Name,
		Description:         bench.Description,
		SimulatedCycles:     stats.Cycles,
		InstructionsRetired: stats.Instructions,
		Traps:               stats.Traps,
		MisalignedLoads:     stats.MisalignedLoads,
		MisalignedStores:    stats.MisalignedStores,
		TrapWordReads:       stats.TrapWordReads,
		TrapWordWrites:      stats.TrapWordWrites,
		Console:             uart.Lines(),
		ExitCode:            exitCode,
		WallTime:            wallTime,
	}

	if halted, err := e.Halted(); halted {
		result.Halt = err.Error()
	}

	if dcache != nil {
		cs := dcache.Cache().Stats()
		result.DCacheHits = cs.Hits
		result.DCacheMisses = cs.Misses
		result.SimulatedCycles += dcache.Cycles()
	}

	if result.InstructionsRetired > 0 {
		result.CPI = float64(result.SimulatedCycles) / float64(result.InstructionsRetired)
	}

	return result
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== rvtrap Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Halt != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Halted: %s\n", r.Halt)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintln(h.config.Output, "  --- Traps ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Taken:             %d\n", r.Traps)
		_, _ = fmt.Fprintf(h.config.Output, "  Misaligned Loads:  %d\n", r.MisalignedLoads)
		_, _ = fmt.Fprintf(h.config.Output, "  Misaligned Stores: %d\n", r.MisalignedStores)
		_, _ = fmt.Fprintf(h.config.Output, "  Word Reads:        %d\n", r.TrapWordReads)
		_, _ = fmt.Fprintf(h.config.Output, "  Word Writes:       %d\n", r.TrapWordWrites)

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,traps,misaligned_loads,misaligned_stores,trap_word_reads,trap_word_writes,dcache_hits,dcache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.Traps,
			r.MisalignedLoads,
			r.MisalignedStores,
			r.TrapWordReads,
			r.TrapWordWrites,
			r.DCacheHits,
			r.DCacheMisses,
			r.ExitCode,
		)
	}
}

// BuildProgram assembles instruction words into a byte slice.
func BuildProgram(instrs ...uint32) []byte {
	program := make([]byte, 0, len(instrs)*4)
	for _, inst := range instrs {
		program = binary.LittleEndian.AppendUint32(program, inst)
	}
	return program
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	Metadata ReportMetadata    `json:"metadata"`
	Results  []BenchmarkResult `json:"results"`
	Summary  ReportSummary     `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	DCacheEnabled bool                  `json:"dcache_enabled"`
	Timing        *latency.TimingConfig `json:"timing"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	TotalBenchmarks   int           `json:"total_benchmarks"`
	TotalCycles       uint64        `json:"total_cycles"`
	TotalInstructions uint64        `json:"total_instructions"`
	TotalTraps        uint64        `json:"total_traps"`
	AverageCPI        float64       `json:"average_cpi"`
	TotalWallTime     time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var summary ReportSummary
	summary.TotalBenchmarks = len(results)
	for _, r := range results {
		summary.TotalCycles += r.SimulatedCycles
		summary.TotalInstructions += r.InstructionsRetired
		summary.TotalTraps += r.Traps
		summary.TotalWallTime += r.WallTime
	}
	if summary.TotalInstructions > 0 {
		summary.AverageCPI = float64(summary.TotalCycles) / float64(summary.TotalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Config: BenchmarkConfig{
				DCacheEnabled: h.config.EnableDCache,
				Timing:        h.config.Timing,
			},
		},
		Results: results,
		Summary: summary,
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
