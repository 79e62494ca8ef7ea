// Command benchmark runs the rvtrap trap-path benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results as a JSON report
//	-no-dcache  Disable data cache simulation
//	-config     Path to timing configuration JSON file
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
//
// Comparing aligned_baseline with the misaligned benchmarks shows what
// the trap path costs per access.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/sarchlab/rvtrap/benchmarks"
	"github.com/sarchlab/rvtrap/timing/latency"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results as JSON")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache simulation")
	configPath := flag.String("config", "", "Path to timing configuration JSON file")
	flag.Parse()

	config := benchmarks.DefaultConfig()
	config.EnableDCache = !*noDCache
	config.Output = os.Stdout

	if *configPath != "" {
		timing, err := latency.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading timing config: %v\n", err)
			os.Exit(1)
		}
		config.Timing = timing
	}

	harness := benchmarks.NewHarness(config)
	harness.AddBenchmarks(benchmarks.GetMicrobenchmarks())

	human := !*csvOutput && !*jsonOutput
	if human {
		fmt.Println("rvtrap Benchmark Harness")
		fmt.Println("========================")
		fmt.Printf("D-Cache: %v\n", config.EnableDCache)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	failed := 0
	for _, r := range results {
		if r.Halt != "" {
			failed++
		}
	}
	if human {
		fmt.Println("=== Summary ===")
		fmt.Printf("%d benchmarks, %d halted\n", len(results), failed)
	}
	if failed > 0 {
		os.Exit(1)
	}
}
