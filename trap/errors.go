package trap

import (
	"errors"
	"fmt"
)

// Halt reasons. A halt is terminal; the core offers no recovery.
var (
	ErrUnsupportedCause    = errors.New("unsupported trap cause")
	ErrTranslationRequired = errors.New("address translation required")
	ErrInvalidInstruction  = errors.New("invalid instruction")
	ErrAddressOverflow     = errors.New("address overflow")
)

// Kind classifies a halt.
type Kind uint8

// Halt kinds.
const (
	KindUnsupportedCause Kind = iota + 1
	KindTranslationRequired
	KindInvalidInstruction
	KindAddressOverflow
)

func (k Kind) String() string {
	if err := k.sentinel(); err != nil {
		return err.Error()
	}
	return "unknown"
}

func (k Kind) sentinel() error {
	switch k {
	case KindUnsupportedCause:
		return ErrUnsupportedCause
	case KindTranslationRequired:
		return ErrTranslationRequired
	case KindInvalidInstruction:
		return ErrInvalidInstruction
	case KindAddressOverflow:
		return ErrAddressOverflow
	}
	return nil
}

// Halt is the fail-stop signal. It carries enough of the trap state for
// an external collaborator to report it.
type Halt struct {
	Kind  Kind
	Cause Cause
	PC    uint32
	Instr uint32
}

func (h *Halt) Error() string {
	return fmt.Sprintf("halt: %s (%s) at pc 0x%08x, instr 0x%08x",
		h.Kind, h.Cause, h.PC, h.Instr)
}

// Unwrap returns the sentinel error for the halt kind.
func (h *Halt) Unwrap() error {
	return h.Kind.sentinel()
}

func halt(kind Kind, pc, instr uint32) *Halt {
	return &Halt{Kind: kind, PC: pc, Instr: instr}
}
