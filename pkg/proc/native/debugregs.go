package native

import (
	"github.com/coredbg/coredbg/pkg/proc"
)

// peekDebugRegisters and setDebugRegisters read and write DR0-DR3, DR6,
// DR7 at offset+i*8 in the user area; indices 4 and 5 are reserved by
// the architecture and always forced to zero. The byte offset of DR0
// within struct user differs between amd64 and 386, so callers pass it
// in rather than this file depending on a build-tagged constant.
func (s *Session) peekDebugRegisters(tid proc.ThreadId, offset int, out *proc.RegisterBank) error {
	for i := 0; i < 8; i++ {
		if i == 4 || i == 5 {
			continue
		}
		var v uint64
		var err error
		s.execPtraceFunc(func() {
			v, err = ptPeekUser(tid, uintptr(offset+i*8))
		})
		if err != nil {
			return err
		}
		out.DebugRegs[i] = v
	}
	out.DebugRegs[4] = 0
	out.DebugRegs[5] = 0
	out.DebugPresent = true
	return nil
}

func (s *Session) setDebugRegisters(tid proc.ThreadId, offset int, in *proc.RegisterBank) error {
	for i := 0; i < 8; i++ {
		if i == 4 || i == 5 {
			continue
		}
		var err error
		s.execPtraceFunc(func() {
			err = ptPokeUser(tid, uintptr(offset+i*8), in.DebugRegs[i])
		})
		if err != nil {
			return proc.KernelRefused{Op: "poke_debugreg", Tid: tid, Errno: err}
		}
	}
	return nil
}
