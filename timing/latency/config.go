package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds cycle costs for native instructions and for the
// misaligned-access trap path.
type TimingConfig struct {
	// ALULatency is the execution latency for ADDI and LUI.
	// Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// LoadLatency is the latency of a native aligned load.
	// Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency of a native aligned store.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// BranchLatency is the latency of BEQ and BNE, taken or not.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// SyscallLatency is the latency of ECALL.
	// Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency"`

	// TrapEntryLatency covers the pipeline flush, CSR updates and the
	// register save on trap entry. Default: 16 cycles.
	TrapEntryLatency uint64 `json:"trap_entry_latency"`

	// DecodeLatency is the handler's classification and field decode.
	// Default: 8 cycles.
	DecodeLatency uint64 `json:"decode_latency"`

	// WordReadLatency is the cost of each aligned word read the handler
	// issues. Default: 2 cycles.
	WordReadLatency uint64 `json:"word_read_latency"`

	// WordWriteLatency is the cost of each aligned word write the handler
	// issues. Default: 1 cycle.
	WordWriteLatency uint64 `json:"word_write_latency"`

	// TrapReturnLatency covers the register restore and MRET.
	// Default: 16 cycles.
	TrapReturnLatency uint64 `json:"trap_return_latency"`
}

// DefaultTimingConfig returns a TimingConfig with default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:        1,
		LoadLatency:       2,
		StoreLatency:      1,
		BranchLatency:     1,
		SyscallLatency:    1,
		TrapEntryLatency:  16,
		DecodeLatency:     8,
		WordReadLatency:   2,
		WordWriteLatency:  1,
		TrapReturnLatency: 16,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.SyscallLatency == 0 {
		return fmt.Errorf("syscall_latency must be > 0")
	}
	if c.TrapEntryLatency == 0 {
		return fmt.Errorf("trap_entry_latency must be > 0")
	}
	if c.WordReadLatency == 0 {
		return fmt.Errorf("word_read_latency must be > 0")
	}
	if c.WordWriteLatency == 0 {
		return fmt.Errorf("word_write_latency must be > 0")
	}
	if c.TrapReturnLatency == 0 {
		return fmt.Errorf("trap_return_latency must be > 0")
	}
	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
