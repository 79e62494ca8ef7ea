package emu

import "io"

// RV32 Linux syscall numbers, passed in a7.
const (
	SyscallWrite uint32 = 64 // write(fd, buf, count)
	SyscallExit  uint32 = 93 // exit(status)
)

// Linux error codes.
const (
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 38 // Function not implemented
	EIO    = 5  // I/O error
)

// ABI registers used by the syscall convention.
const (
	regA0 uint8 = 10
	regA1 uint8 = 11
	regA2 uint8 = 12
	regA7 uint8 = 17
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler services ECALL.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state:
	// number in a7, arguments in a0-a2, return value in a0.
	Handle() SyscallResult
}

// DefaultSyscallHandler implements write and exit. Buffers are read from
// memory with aligned word reads.
type DefaultSyscallHandler struct {
	regFile *RegFile
	port    WordPort
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler(regFile *RegFile, port WordPort, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		port:    port,
		stdout:  stdout,
		stderr:  stderr,
	}
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	switch h.regFile.ReadReg(regA7) {
	case SyscallWrite:
		return h.handleWrite()
	case SyscallExit:
		return SyscallResult{
			Exited:   true,
			ExitCode: int64(int32(h.regFile.ReadReg(regA0))),
		}
	default:
		h.setError(ENOSYS)
		return SyscallResult{}
	}
}

// handleWrite handles the write syscall (64).
func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadReg(regA0)
	bufPtr := h.regFile.ReadReg(regA1)
	count := h.regFile.ReadReg(regA2)

	var writer io.Writer
	switch fd {
	case 1:
		writer = h.stdout
	case 2:
		writer = h.stderr
	default:
		h.setError(EBADF)
		return SyscallResult{}
	}

	n, err := writer.Write(h.readBuffer(bufPtr, count))
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.regFile.WriteReg(regA0, uint32(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler) readBuffer(addr, count uint32) []byte {
	buf := make([]byte, 0, count)
	for i := uint32(0); i < count; i++ {
		a := addr + i
		word := h.port.ReadWord(a &^ 3)
		buf = append(buf, byte(word>>((a&3)*8)))
	}
	return buf
}

// setError sets a0 to -errno.
func (h *DefaultSyscallHandler) setError(errno int) {
	h.regFile.WriteReg(regA0, uint32(-int32(errno)))
}
