package native

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coredbg/coredbg/pkg/proc"
)

// TestMaskBreakpoints_transparency checks that a byte read at a
// breakpoint's address comes back as the original byte, not the trap
// byte the debugger itself wrote there.
func TestMaskBreakpoints_transparency(t *testing.T) {
	s := NewSession(proc.ArchAMD64)
	defer s.Close()

	s.breakpoints.Insert(0x1008, 0x90)

	buf := []byte{0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc, 0xcc}
	s.maskBreakpoints(buf, 0x1000, len(buf))

	assert.Equal(t, byte(0x90), buf[8])
	for i, b := range buf {
		if i != 8 {
			assert.Equal(t, byte(0xcc), b)
		}
	}
}

func TestMaskBreakpoints_outsideRangeUntouched(t *testing.T) {
	s := NewSession(proc.ArchAMD64)
	defer s.Close()

	s.breakpoints.Insert(0x2000, 0x90)

	buf := make([]byte, 16)
	for i := range buf {
		buf[i] = 0xff
	}
	s.maskBreakpoints(buf, 0x1000, len(buf))

	for _, b := range buf {
		assert.Equal(t, byte(0xff), b)
	}
}
