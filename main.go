// Package main provides the entry point for rvtrap.
// rvtrap is an RV32 hart whose machine-mode trap handler emulates
// misaligned loads and stores with aligned word accesses.
//
// For the full CLI, use: go run ./cmd/rvtrap
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rvtrap - RV32 misaligned access trap emulation")
	fmt.Println("")
	fmt.Println("Usage: rvtrap [options] [kernel.elf]")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -timing    Enable cycle accounting")
	fmt.Println("  -config    Path to timing configuration JSON file")
	fmt.Println("  -cache     Put the data cache between the hart and memory")
	fmt.Println("  -steps     Maximum instructions to execute")
	fmt.Println("  -v         Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rvtrap' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rvtrap' instead.")
	}
}
