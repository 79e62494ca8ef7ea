// Package main provides the entry point for rvtrap.
// rvtrap runs an RV32 kernel on a hart whose misaligned loads and stores
// are completed by the machine-mode trap handler.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/sarchlab/rvtrap/loader"
	"github.com/sarchlab/rvtrap/timing/latency"
)

var (
	timing     = flag.Bool("timing", false, "Enable cycle accounting")
	configPath = flag.String("config", "", "Path to timing configuration JSON file")
	dcache     = flag.Bool("cache", false, "Put the data cache between the hart and memory")
	steps      = flag.Uint64("steps", 10_000_000, "Maximum instructions to execute (0 for no limit)")
	verbose    = flag.Bool("v", false, "Verbose output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: rvtrap [options] [kernel.elf]\n")
		fmt.Fprintf(os.Stderr, "\nWithout a kernel, the built-in smoke test runs.\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	if *verbose {
		logger.SetLevel(logrus.DebugLevel)
	}

	cfg := runConfig{
		dcache:   *dcache,
		maxSteps: *steps,
		logger:   logger,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}

	if *timing || *configPath != "" {
		cfg.timing = latency.DefaultTimingConfig()
		if *configPath != "" {
			var err error
			cfg.timing, err = latency.LoadConfig(*configPath)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
				os.Exit(1)
			}
		}
	}

	m := newMachine(cfg)

	name := "smoke"
	if flag.NArg() > 0 {
		name = flag.Arg(0)

		prog, err := loader.Load(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
			os.Exit(1)
		}

		logger.WithFields(logrus.Fields{
			"entry":    fmt.Sprintf("0x%08x", prog.EntryPoint),
			"segments": len(prog.Segments),
		}).Infof("loaded %s", name)

		m.loadProgram(prog)
	} else {
		m.loadSmoke()
	}

	exitCode := m.run()
	m.report(os.Stdout, name, exitCode)

	os.Exit(int(exitCode))
}
