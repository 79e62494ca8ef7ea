// Package core provides a cycle-driven model of the hart.
// Each instruction, and each trap, occupies the core for as many cycles
// as the hart's latency table charges for it. A machine timer raises
// interrupts on cycle boundaries.
package core

import (
	"github.com/sarchlab/rvtrap/emu"
)

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Traps is the number of traps taken, interrupts included.
	Traps uint64
	// TimerInterrupts is the number of timer interrupts raised.
	TimerInterrupts uint64
	// BusyCycles counts cycles spent waiting for a multi-cycle step.
	BusyCycles uint64
}

// Option configures a Core.
type Option func(*Core)

// WithTimer raises a machine timer interrupt every period cycles. A
// period of 0 disables the timer.
func WithTimer(period uint64) Option {
	return func(c *Core) {
		c.timerPeriod = period
	}
}

// Core steps a hart one cycle at a time.
type Core struct {
	hart *emu.Emulator

	cycle     uint64
	busyUntil uint64
	busy      uint64

	timerPeriod uint64
	nextTimer   uint64
	timerFired  uint64

	done     bool
	exitCode int64
	err      error
}

// NewCore creates a Core around hart. Without a latency table on the hart
// every step costs one cycle.
func NewCore(hart *emu.Emulator, opts ...Option) *Core {
	c := &Core{hart: hart}
	for _, opt := range opts {
		opt(c)
	}
	c.nextTimer = c.timerPeriod
	return c
}

// Hart returns the wrapped hart.
func (c *Core) Hart() *emu.Emulator {
	return c.hart
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.hart.SetPC(pc)
}

// Tick advances the core by one cycle.
func (c *Core) Tick() {
	if c.done {
		return
	}

	if c.timerPeriod > 0 && c.cycle >= c.nextTimer {
		c.hart.RaiseInterrupt(emu.InterruptMachineTimer)
		c.timerFired++
		c.nextTimer += c.timerPeriod
	}

	if c.cycle < c.busyUntil {
		c.busy++
		c.cycle++
		return
	}

	before := c.hart.Stats().Cycles
	result := c.hart.Step()
	cost := c.hart.Stats().Cycles - before
	if cost == 0 {
		cost = 1
	}
	c.busyUntil = c.cycle + cost
	c.cycle++

	switch {
	case result.Exited:
		c.finish(result.ExitCode, nil)
	case result.Err != nil:
		c.finish(-1, result.Err)
	}
}

func (c *Core) finish(exitCode int64, err error) {
	c.done = true
	c.exitCode = exitCode
	c.err = err
	// the last step still occupies the core
	c.busy += c.busyUntil - c.cycle
	c.cycle = c.busyUntil
}

// Halted returns true once the program has exited or the hart has stopped.
func (c *Core) Halted() bool {
	return c.done
}

// ExitCode returns the exit code, -1 if the hart halted.
func (c *Core) ExitCode() int64 {
	return c.exitCode
}

// Err returns the reason the hart stopped, or nil on a normal exit.
func (c *Core) Err() error {
	return c.err
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	hs := c.hart.Stats()
	return Stats{
		Cycles:          c.cycle,
		Instructions:    hs.Instructions,
		Traps:           hs.Traps,
		TimerInterrupts: c.timerFired,
		BusyCycles:      c.busy,
	}
}

// Run executes the core until it halts.
// Returns the exit code.
func (c *Core) Run() int64 {
	for !c.done {
		c.Tick()
	}
	return c.exitCode
}

// RunCycles executes the core for the specified number of cycles.
// Returns true if still running, false if halted.
func (c *Core) RunCycles(cycles uint64) bool {
	for i := uint64(0); i < cycles && !c.done; i++ {
		c.Tick()
	}
	return !c.done
}

// Reset clears the core and the hart. Memory is kept.
func (c *Core) Reset() {
	c.hart.Reset()
	*c = Core{hart: c.hart, timerPeriod: c.timerPeriod, nextTimer: c.timerPeriod}
}
