package native

import (
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/proc"
	"github.com/coredbg/coredbg/pkg/proc/amd64util"
)

// This file implements the amd64 half of the Register Bank's
// acquisition/restoration sequence.

const (
	ntX86Xstate            = 0x202 // NT_X86_XSTATE, see <linux/elf.h>
	debugRegUserOffsetAMD64 = 848  // offset of DR0 within struct user on x86-64, see arch/x86/kernel/ptrace.c
)

// getStateAMD64 runs the acquisition sequence against tid, filling out.
func (s *Session) getStateAMD64(tid proc.ThreadId, out *proc.RegisterBank) error {
	out.ClearPresence()

	var kregs sys.PtraceRegs
	var err error
	s.execPtraceFunc(func() { err = sys.PtraceGetRegs(int(tid), &kregs) })
	if err != nil {
		return proc.KernelRefused{Op: "get_regs", Tid: tid, Errno: err}
	}
	copyAMD64KernelRegs(&out.AMD64, &kregs)
	out.GeneralPresent = true

	if s.getXstateAMD64(tid, out) {
		out.FPPresent = true
		out.XSavePresent = true
	} else if err := s.getFpregsFallbackAMD64(tid, out); err != nil {
		return err
	}

	return s.peekDebugRegisters(tid, debugRegUserOffsetAMD64, out)
}

// FPXREGS is 32-bit only; on amd64 the fallback below XSTATE is
// FPREGS, which already carries SSE state.
func (s *Session) getFpregsFallbackAMD64(tid proc.ThreadId, out *proc.RegisterBank) error {
	var fpregs proc.AMD64LegacyFPRegs
	var err error
	s.execPtraceFunc(func() {
		_, _, e := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETFPREGS, uintptr(tid), 0, uintptr(unsafe.Pointer(&fpregs)), 0, 0)
		if e != 0 {
			err = e
		}
	})
	if err != nil {
		return proc.Unsupported{Feature: "fpregs", Reason: err}
	}
	out.FP = fpregs
	out.FPPresent = true
	return nil
}

func (s *Session) getXstateAMD64(tid proc.ThreadId, out *proc.RegisterBank) bool {
	xstateargs := make([]byte, amd64util.AMD64XstateMaxSize())
	iov := sys.Iovec{Base: &xstateargs[0], Len: uint64(len(xstateargs))}
	var errno syscall.Errno
	s.execPtraceFunc(func() {
		_, _, errno = sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETREGSET, uintptr(tid), ntX86Xstate, uintptr(unsafe.Pointer(&iov)), 0, 0)
	})
	if errno != 0 {
		return false
	}

	xsave := xstateargs[:iov.Len]
	avx, avx512, ymm, zmm, err := amd64util.AMD64XstateRead(xsave, true, &out.FP)
	if err != nil {
		return false
	}
	out.XSaveArea = xsave
	out.AVXState = avx
	out.AVX512State = avx512
	out.YMMSpace = ymm
	out.ZMMSpace = zmm
	return true
}

func copyAMD64KernelRegs(dst *proc.AMD64GeneralRegisters, k *sys.PtraceRegs) {
	dst.R15, dst.R14, dst.R13, dst.R12 = k.R15, k.R14, k.R13, k.R12
	dst.Rbp, dst.Rbx = k.Rbp, k.Rbx
	dst.R11, dst.R10, dst.R9, dst.R8 = k.R11, k.R10, k.R9, k.R8
	dst.Rax, dst.Rcx, dst.Rdx, dst.Rsi, dst.Rdi = k.Rax, k.Rcx, k.Rdx, k.Rsi, k.Rdi
	dst.OrigRax = k.Orig_rax
	dst.Rip = k.Rip
	dst.Cs = k.Cs
	dst.Eflags = k.Eflags
	dst.Rsp = k.Rsp
	dst.Ss = k.Ss
	dst.FsBase, dst.GsBase = k.Fs_base, k.Gs_base
	dst.Ds, dst.Es, dst.Fs, dst.Gs = k.Ds, k.Es, k.Fs, k.Gs
}

func toKernelRegsAMD64(src *proc.AMD64GeneralRegisters) sys.PtraceRegs {
	var k sys.PtraceRegs
	k.R15, k.R14, k.R13, k.R12 = src.R15, src.R14, src.R13, src.R12
	k.Rbp, k.Rbx = src.Rbp, src.Rbx
	k.R11, k.R10, k.R9, k.R8 = src.R11, src.R10, src.R9, src.R8
	k.Rax, k.Rcx, k.Rdx, k.Rsi, k.Rdi = src.Rax, src.Rcx, src.Rdx, src.Rsi, src.Rdi
	k.Orig_rax = src.OrigRax
	k.Rip = src.Rip
	k.Cs = src.Cs
	k.Eflags = src.Eflags
	k.Rsp = src.Rsp
	k.Ss = src.Ss
	k.Fs_base, k.Gs_base = src.FsBase, src.GsBase
	k.Ds, k.Es, k.Fs, k.Gs = src.Ds, src.Es, src.Fs, src.Gs
	return k
}

// setStateAMD64 writes the general registers and the six debug
// registers back to tid.
func (s *Session) setStateAMD64(tid proc.ThreadId, in *proc.RegisterBank) error {
	k := toKernelRegsAMD64(&in.AMD64)
	var err error
	s.execPtraceFunc(func() { err = sys.PtraceSetRegs(int(tid), &k) })
	if err != nil {
		return proc.KernelRefused{Op: "set_regs", Tid: tid, Errno: err}
	}
	return s.setDebugRegisters(tid, debugRegUserOffsetAMD64, in)
}
