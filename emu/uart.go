package emu

import (
	"bytes"
	"io"
)

// QuasiUARTAddress is the word address of the console data register.
const QuasiUARTAddress uint32 = 0x00000004

// QuasiUART is a write-only console that receives text packed four bytes
// per word, least significant byte first. A NUL byte ends a message; the
// device then emits the collected text followed by a newline.
type QuasiUART struct {
	out     io.Writer
	pending bytes.Buffer
	lines   []string
}

// NewQuasiUART creates a console writing completed messages to out.
// A nil out only records messages.
func NewQuasiUART(out io.Writer) *QuasiUART {
	return &QuasiUART{out: out}
}

// WriteWord consumes one data-register write.
func (u *QuasiUART) WriteWord(value uint32) {
	for i := 0; i < WordSize; i++ {
		b := byte(value >> (8 * i))
		if b == 0 {
			u.flush()
			continue
		}
		u.pending.WriteByte(b)
	}
}

func (u *QuasiUART) flush() {
	if u.pending.Len() == 0 {
		return
	}
	line := u.pending.String()
	u.pending.Reset()
	u.lines = append(u.lines, line)
	if u.out != nil {
		_, _ = io.WriteString(u.out, line+"\n")
	}
}

// Lines returns the completed messages so far.
func (u *QuasiUART) Lines() []string {
	return append([]string(nil), u.lines...)
}

// PackMessage packs s the way firmware feeds the console: its bytes
// followed by a NUL, padded with NULs to whole words.
func PackMessage(s string) []uint32 {
	data := append([]byte(s), 0)
	for len(data)%WordSize != 0 {
		data = append(data, 0)
	}

	words := make([]uint32, 0, len(data)/WordSize)
	for i := 0; i < len(data); i += WordSize {
		words = append(words, uint32(data[i])|uint32(data[i+1])<<8|
			uint32(data[i+2])<<16|uint32(data[i+3])<<24)
	}
	return words
}
