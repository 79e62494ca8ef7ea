// Package main provides a profiling wrapper for rvtrap to find hot spots
// on the trap path.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"runtime/pprof"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvtrap/benchmarks"
	"github.com/sarchlab/rvtrap/emu"
	"github.com/sarchlab/rvtrap/loader"
	"github.com/sarchlab/rvtrap/timing/core"
	"github.com/sarchlab/rvtrap/timing/latency"
	"github.com/sarchlab/rvtrap/trap"
)

var (
	timing      = flag.Bool("timing", false, "Run on the cycle-driven core")
	timerPeriod = flag.Uint64("timer", 0, "Machine timer period in cycles (timing mode only, 0 = off)")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
	repeat      = flag.Int("repeat", 1000, "times to run the built-in benchmarks when no program is given")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetLevel(logrus.WarnLevel)

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	var images []image
	if flag.NArg() > 0 {
		prog, err := loader.Load(flag.Arg(0))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded: %s\n", flag.Arg(0))
		fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)
		images = append(images, elfImage(prog))
	} else {
		for i := 0; i < *repeat; i++ {
			for _, b := range benchmarks.GetMicrobenchmarks() {
				images = append(images, benchmarkImage(b))
			}
		}
	}

	start := time.Now()

	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var exitCode int64
	var instrCount, trapCount uint64
	for _, img := range images {
		var hs emu.Statistics
		exitCode, hs = runImage(img, logger)
		instrCount += hs.Instructions
		trapCount += hs.Traps
	}

	elapsed := time.Since(start)

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Runs: %d\n", len(images))
	fmt.Printf("Last exit code: %d\n", exitCode)
	fmt.Printf("Instructions executed: %d\n", instrCount)
	fmt.Printf("Traps taken: %d\n", trapCount)
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
	if trapCount > 0 {
		fmt.Printf("Traps/second: %.0f\n", float64(trapCount)/elapsed.Seconds())
	}
}

// image is a program ready to be placed in a fresh machine.
type image struct {
	load     func(memory *emu.Memory, hart *emu.Emulator)
	syscalls bool
}

func elfImage(prog *loader.Program) image {
	return image{
		load: func(memory *emu.Memory, hart *emu.Emulator) {
			prog.LoadInto(memory)
			hart.RegFile().WriteReg(2, prog.InitialSP)
			hart.SetPC(prog.EntryPoint)
		},
		syscalls: true,
	}
}

func benchmarkImage(b benchmarks.Benchmark) image {
	return image{
		load: func(memory *emu.Memory, hart *emu.Emulator) {
			memory.LoadBytes(benchmarks.ProgramBase, b.Program)
			if b.Setup != nil {
				b.Setup(hart.RegFile(), memory)
			}
			hart.SetPC(benchmarks.ProgramBase)
		},
	}
}

// runImage runs one image, on the cycle-driven core in timing mode.
func runImage(img image, logger *logrus.Logger) (int64, emu.Statistics) {
	memory := emu.NewMemory()
	bus := emu.NewBus(memory, emu.NewQuasiUART(nil))

	opts := []emu.EmulatorOption{
		emu.WithTrapHandler(trap.NewHandler(trap.WithVectorTable(trap.NewVectorTable(16, nil)))),
		emu.WithMaxInstructions(*instruction),
		emu.WithLogger(logger),
		emu.WithStdout(io.Discard),
	}
	if *timing {
		opts = append(opts, emu.WithLatencyTable(latency.NewTable()))
	}

	hart := emu.NewEmulator(bus, opts...)
	img.load(memory, hart)
	if img.syscalls {
		hart.SetSyscallHandler(emu.NewDefaultSyscallHandler(hart.RegFile(), bus, os.Stdout, os.Stderr))
	}

	if !*timing {
		return hart.Run(), hart.Stats()
	}

	c := core.NewCore(hart, core.WithTimer(*timerPeriod))
	return c.Run(), hart.Stats()
}
