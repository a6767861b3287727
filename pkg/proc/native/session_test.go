package native

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/proc"
)

func TestActiveResumeCode_handledConsumesSignal(t *testing.T) {
	s := NewSession(proc.ArchAMD64)
	defer s.Close()

	s.activeTid = 7
	s.threads.Insert(7, &proc.ThreadRecord{LastStatus: int(unix.SIGTRAP<<8 | 0x7f)})

	assert.Equal(t, 0, s.activeResumeCode(proc.ContinueHandled))
}

func TestActiveResumeCode_unhandledPassesThroughLastSignal(t *testing.T) {
	s := NewSession(proc.ArchAMD64)
	defer s.Close()

	s.activeTid = 7
	s.threads.Insert(7, &proc.ThreadRecord{LastStatus: int(unix.SIGTRAP<<8 | 0x7f)})

	assert.Equal(t, int(unix.SIGTRAP), s.activeResumeCode(proc.ContinueUnhandled))
}

func TestResetState_clearsEverything(t *testing.T) {
	s := NewSession(proc.ArchAMD64)
	defer s.Close()

	s.pid = 99
	s.activeTid = 1
	s.eventTid = 1
	s.threads.Insert(1, &proc.ThreadRecord{})
	s.reaped.Add(1)
	s.breakpoints.Insert(0x1000, 0x90)

	s.resetState()

	assert.Equal(t, proc.NoProcess, s.pid)
	assert.Equal(t, proc.NoThread, s.activeTid)
	assert.Equal(t, 0, s.threads.Len())
	assert.Equal(t, 0, s.reaped.Len())
	assert.Equal(t, 0, s.breakpoints.Len())
}

func TestHasExtension_amd64UnconditionalBaseline(t *testing.T) {
	s := NewSession(proc.ArchAMD64)
	defer s.Close()

	assert.True(t, s.HasExtension("MMX", nil))
	assert.True(t, s.HasExtension("XMM", nil))
	assert.False(t, s.HasExtension("AVX512", nil))
}

func TestHasExtension_386DerivedFromAcquiredState(t *testing.T) {
	s := NewSession(proc.Arch386)
	defer s.Close()

	bank := proc.NewRegisterBank(proc.Arch386)
	assert.False(t, s.HasExtension("MMX", bank))
	assert.False(t, s.HasExtension("XMM", bank))

	bank.FPPresent = true
	supported := true
	bank.FPXRegsSupported = &supported
	assert.True(t, s.HasExtension("MMX", bank))
	assert.True(t, s.HasExtension("XMM", bank))
}

func TestFormatPointer_widthByArch(t *testing.T) {
	s64 := NewSession(proc.ArchAMD64)
	defer s64.Close()
	assert.Equal(t, "0000000000001000", s64.FormatPointer(0x1000))

	s32 := NewSession(proc.Arch386)
	defer s32.Close()
	assert.Equal(t, "00001000", s32.FormatPointer(0x1000))
}
