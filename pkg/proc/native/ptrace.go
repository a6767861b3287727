package native

import (
	"encoding/binary"
	"syscall"
	"unsafe"

	sys "golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/proc"
)

// This file is a typed covering over the raw ptrace(2) opcodes. Every
// function here must only ever be called from inside a
// Session.execPtraceFunc closure; none of them know about the Session,
// the Thread Table, or the ReapedSet — that bookkeeping belongs to the
// callers in eventpump.go, stopworld.go and session.go.

// traceme requests tracing of the calling thread. Called in the
// freshly-forked child before exec.
func traceme() error {
	_, _, errno := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_TRACEME, 0, 0, 0, 0, 0)
	if errno != 0 {
		return proc.KernelRefused{Op: "traceme", Errno: errno}
	}
	return nil
}

func ptAttach(tid proc.ThreadId) error {
	if err := sys.PtraceAttach(int(tid)); err != nil {
		return proc.KernelRefused{Op: "attach", Tid: tid, Errno: err}
	}
	return nil
}

func ptDetach(tid proc.ThreadId, sig int) error {
	_, _, errno := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_DETACH, uintptr(tid), 1, uintptr(sig), 0, 0)
	if errno != 0 {
		return proc.KernelRefused{Op: "detach", Tid: tid, Errno: errno}
	}
	return nil
}

func ptContinue(tid proc.ThreadId, sig int) error {
	if err := sys.PtraceCont(int(tid), sig); err != nil {
		return proc.KernelRefused{Op: "cont", Tid: tid, Errno: err}
	}
	return nil
}

func ptStep(tid proc.ThreadId, sig int) error {
	_, _, errno := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_SINGLESTEP, uintptr(tid), 0, uintptr(sig), 0, 0)
	if errno != 0 {
		return proc.KernelRefused{Op: "step", Tid: tid, Errno: errno}
	}
	return nil
}

func ptSetOptions(tid proc.ThreadId, opts int) error {
	if err := syscall.PtraceSetOptions(int(tid), opts); err != nil {
		return proc.KernelRefused{Op: "set_options", Tid: tid, Errno: err}
	}
	return nil
}

func ptGetEventMsg(tid proc.ThreadId) (uint, error) {
	msg, err := sys.PtraceGetEventMsg(int(tid))
	if err != nil {
		return 0, proc.KernelRefused{Op: "get_event_message", Tid: tid, Errno: err}
	}
	return msg, nil
}

// linuxSiginfo mirrors the leading, architecture-stable fields of
// siginfo_t (see <bits/siginfo.h>): signo, errno, code.
type linuxSiginfo struct {
	Signo, Errno, Code int32
	_                  int32 // padding to the union on 64-bit
}

func ptGetSigInfo(tid proc.ThreadId) (proc.SigInfo, error) {
	var raw linuxSiginfo
	_, _, errno := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_GETSIGINFO, uintptr(tid), 0, uintptr(unsafe.Pointer(&raw)), 0, 0)
	if errno != 0 {
		return proc.SigInfo{}, proc.KernelRefused{Op: "get_siginfo", Tid: tid, Errno: errno}
	}
	return proc.SigInfo{Signal: raw.Signo, Errno: raw.Errno, Code: raw.Code}, nil
}

func ptPeekUser(tid proc.ThreadId, offset uintptr) (uint64, error) {
	var out uint64
	_, _, errno := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_PEEKUSR, uintptr(tid), offset, uintptr(unsafe.Pointer(&out)), 0, 0)
	if errno != 0 {
		return 0, proc.KernelRefused{Op: "peek_user", Tid: tid, Errno: errno}
	}
	return out, nil
}

func ptPokeUser(tid proc.ThreadId, offset uintptr, val uint64) error {
	_, _, errno := sys.Syscall6(sys.SYS_PTRACE, sys.PTRACE_POKEUSR, uintptr(tid), offset, uintptr(val), 0, 0)
	if errno != 0 {
		return proc.KernelRefused{Op: "poke_user", Tid: tid, Errno: errno}
	}
	return nil
}

// peekText/pokeText operate on a single native machine word. Success is
// taken from the error PtracePeekText/PtracePokeText return, not from
// the word value, so a legitimate word value of -1 is not mistaken for
// a failure.
func ptPeekText(tid proc.ThreadId, addr proc.Address) (uint64, bool) {
	buf := make([]byte, 8)
	if _, err := sys.PtracePeekText(int(tid), uintptr(addr), buf); err != nil {
		return 0, false
	}
	return binary.LittleEndian.Uint64(buf), true
}

func ptPokeText(tid proc.ThreadId, addr proc.Address, word uint64) bool {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, word)
	if _, err := sys.PtracePokeText(int(tid), uintptr(addr), buf); err != nil {
		return false
	}
	return true
}

func ptKill(pid proc.ProcessId) error {
	if err := sys.Kill(int(pid), sys.SIGKILL); err != nil {
		return proc.KernelRefused{Op: "kill", Tid: proc.ThreadId(pid), Errno: err}
	}
	return nil
}

