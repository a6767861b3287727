package native

import (
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/proc"
	"github.com/coredbg/coredbg/pkg/proc/amd64util"
)

// This file implements the 386 half of the Register Bank's
// acquisition/restoration sequence, including the two steps only
// 32-bit x86 needs: LDT-derived segment bases and the FPXREGS
// fallback.

const debugRegUserOffset386 = 252 // offset of DR0 within struct user on i386, see arch/x86/kernel/ptrace.c

// ldtEntrySize is the size in bytes of one LDT/GDT descriptor; a
// selector's LDT index is the selector value divided by this.
const ldtEntrySize = 8

func (s *Session) getState386(tid proc.ThreadId, out *proc.RegisterBank) error {
	out.ClearPresence()

	var kregs sys.PtraceRegs386
	var err error
	s.execPtraceFunc(func() { err = sys.PtraceGetRegs386(int(tid), &kregs) })
	if err != nil {
		return proc.KernelRefused{Op: "get_regs", Tid: tid, Errno: err}
	}
	copy386KernelRegs(&out.I386, &kregs)
	out.GeneralPresent = true

	if fsBase, gsBase, ok := s.segmentBases386(tid, &out.I386); ok {
		out.FSBase, out.GSBase = fsBase, gsBase
		out.SegmentBasesPresent = true
	}

	if s.getXstate386(tid, out) {
		out.FPPresent = true
		out.XSavePresent = true
	} else if out.FPXRegsSupported != nil && !*out.FPXRegsSupported {
		// Already known not to work on this kernel; don't retry it.
		if err := s.getFpregsFallback386(tid, out); err != nil {
			return err
		}
	} else if supported := s.getFpxregsFallback386(tid, out); supported != nil {
		out.FPXRegsSupported = supported
		if *supported {
			out.FPPresent = true
		} else if err := s.getFpregsFallback386(tid, out); err != nil {
			return err
		}
	}

	return s.peekDebugRegisters(tid, debugRegUserOffset386, out)
}

func (s *Session) setState386(tid proc.ThreadId, in *proc.RegisterBank) error {
	k := to386KernelRegs(&in.I386)
	var err error
	s.execPtraceFunc(func() { err = sys.PtraceSetRegs386(int(tid), &k) })
	if err != nil {
		return proc.KernelRefused{Op: "set_regs", Tid: tid, Errno: err}
	}
	return s.setDebugRegisters(tid, debugRegUserOffset386, in)
}

// segmentBases386 computes the LDT entry index for FS and GS (selector
// / ldtEntrySize) and fetches each thread-area descriptor's base
// address via PTRACE_GET_THREAD_AREA.
func (s *Session) segmentBases386(tid proc.ThreadId, regs *proc.I386GeneralRegisters) (fsBase, gsBase proc.Address, ok bool) {
	fs, fsOk := s.threadAreaBase(tid, regs.Xfs)
	gs, gsOk := s.threadAreaBase(tid, regs.Xgs)
	if !fsOk || !gsOk {
		return 0, 0, false
	}
	return proc.Address(fs), proc.Address(gs), true
}

// userDesc mirrors struct user_desc, see arch/x86/include/asm/ldt.h.
type userDesc struct {
	EntryNumber uint32
	BaseAddr    uint32
	Limit       uint32
	Flags       uint32
}

func (s *Session) threadAreaBase(tid proc.ThreadId, selector int32) (uint32, bool) {
	var ud userDesc
	var errno syscall.Errno
	idx := uintptr(selector) / ldtEntrySize
	s.execPtraceFunc(func() {
		_, _, errno = sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GET_THREAD_AREA, uintptr(tid), idx, uintptr(unsafe.Pointer(&ud)), 0, 0)
	})
	if errno != 0 {
		return 0, false
	}
	return ud.BaseAddr, true
}

func (s *Session) getXstate386(tid proc.ThreadId, out *proc.RegisterBank) bool {
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

// getFpxregsFallback386 tries PTRACE_GETFPXREGS, the 32-bit-only
// regset carrying SSE state alongside x87. The support bit is cached
// on the bank's FPXRegsSupported pointer so repeated failures on a
// kernel without it aren't retried every acquisition.
func (s *Session) getFpxregsFallback386(tid proc.ThreadId, out *proc.RegisterBank) *bool {
	var fpxregs proc.AMD64LegacyFPRegs
	var errno syscall.Errno
	s.execPtraceFunc(func() {
		_, _, errno = sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETFPXREGS, uintptr(tid), 0, uintptr(unsafe.Pointer(&fpxregs)), 0, 0)
	})
	ok := errno == 0
	if ok {
		out.FP = fpxregs
	}
	return &ok
}

func (s *Session) getFpregsFallback386(tid proc.ThreadId, out *proc.RegisterBank) error {
	var fpregs proc.AMD64LegacyFPRegs
	var errno syscall.Errno
	s.execPtraceFunc(func() {
		_, _, errno = sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETFPREGS, uintptr(tid), 0, uintptr(unsafe.Pointer(&fpregs)), 0, 0)
	})
	if errno != 0 {
		return proc.Unsupported{Feature: "fpregs", Reason: sys.Errno(errno)}
	}
	out.FP = fpregs
	out.FPPresent = true
	return nil
}

func copy386KernelRegs(dst *proc.I386GeneralRegisters, k *sys.PtraceRegs386) {
	dst.Ebx, dst.Ecx, dst.Edx, dst.Esi, dst.Edi, dst.Ebp, dst.Eax =
		k.Ebx, k.Ecx, k.Edx, k.Esi, k.Edi, k.Ebp, k.Eax
	dst.Xds, dst.Xes, dst.Xfs, dst.Xgs = k.Xds, k.Xes, k.Xfs, k.Xgs
	dst.OrigEax = k.Orig_eax
	dst.Eip = k.Eip
	dst.Xcs = k.Xcs
	dst.Eflags = k.Eflags
	dst.Esp = k.Esp
	dst.Xss = k.Xss
}

func to386KernelRegs(src *proc.I386GeneralRegisters) sys.PtraceRegs386 {
	var k sys.PtraceRegs386
	k.Ebx, k.Ecx, k.Edx, k.Esi, k.Edi, k.Ebp, k.Eax =
		src.Ebx, src.Ecx, src.Edx, src.Esi, src.Edi, src.Ebp, src.Eax
	k.Xds, k.Xes, k.Xfs, k.Xgs = src.Xds, src.Xes, src.Xfs, src.Xgs
	k.Orig_eax = src.OrigEax
	k.Eip = src.Eip
	k.Xcs = src.Xcs
	k.Eflags = src.Eflags
	k.Esp = src.Esp
	k.Xss = src.Xss
	return k
}
