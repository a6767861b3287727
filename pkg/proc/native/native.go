// Package native implements the engine's process-control core against
// the Linux ptrace(2) trace primitive: attach/launch, the multi-thread
// event pump, the stop-the-world coordinator, memory I/O through
// /proc/<pid>/mem, register-bank acquisition and restoration, and
// module enumeration through the dynamic linker's rendezvous
// structure.
//
// Every operation that touches the trace primitive is funneled through
// the single host thread that performed the original attach or launch,
// a kernel restriction this package enforces with execPtraceFunc.
package native

import (
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"

	"github.com/coredbg/coredbg/pkg/logflags"
	"github.com/coredbg/coredbg/pkg/proc"
)

// Session owns the Thread Table, the ReapedSet, the Breakpoint Set, a
// Binary-Info handle, and the process handle, and composes them into
// the single debuggee controller exposed to the rest of the engine.
type Session struct {
	arch proc.Arch

	pid       proc.ProcessId
	activeTid proc.ThreadId
	eventTid  proc.ThreadId

	threads     *proc.ThreadTable
	reaped      *proc.ReapedSet
	breakpoints *proc.BreakpointSet

	binInfo  proc.BinaryInfo
	pageSize int

	comm string

	ptraceChan     chan func()
	ptraceDoneChan chan struct{}

	log *logrus.Entry
}

// NewSession returns an unattached Session and starts the goroutine
// that owns this session's trace-primitive calls for as long as the
// session lives.
func NewSession(arch proc.Arch) *Session {
	s := &Session{
		arch:           arch,
		threads:        proc.NewThreadTable(),
		reaped:         proc.NewReapedSet(),
		breakpoints:    proc.NewBreakpointSet(),
		pageSize:       os.Getpagesize(),
		ptraceChan:     make(chan func()),
		ptraceDoneChan: make(chan struct{}),
		log:            logflags.SessionLogger(),
	}
	go s.handlePtraceFuncs()
	return s
}

// handlePtraceFuncs runs on a locked OS thread for the lifetime of the
// session, executing every trace-primitive call on that single thread.
func (s *Session) handlePtraceFuncs() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	for fn := range s.ptraceChan {
		fn()
		s.ptraceDoneChan <- struct{}{}
	}
}

// execPtraceFunc runs fn on the session's controlling thread and waits
// for it to complete.
func (s *Session) execPtraceFunc(fn func()) {
	s.ptraceChan <- fn
	<-s.ptraceDoneChan
}

// Close releases the controlling goroutine. Callers must not issue any
// further operation on the session afterward.
func (s *Session) Close() {
	close(s.ptraceChan)
}

// Process returns the tracked process id, or proc.NoProcess if
// unattached.
func (s *Session) Process() proc.ProcessId { return s.pid }

// PageSize returns the page size used by read_pages.
func (s *Session) PageSize() int { return s.pageSize }

// Arch returns the architecture this session's register bank is shaped
// for.
func (s *Session) Arch() proc.Arch { return s.arch }

// SetBinaryInfo installs the (opaque, externally-owned) BinaryInfo
// handle the Module Enumerator's primary path consults.
func (s *Session) SetBinaryInfo(bi proc.BinaryInfo) { s.binInfo = bi }

// ActiveThread returns the thread register and single-step operations
// currently target.
func (s *Session) ActiveThread() proc.ThreadId { return s.activeTid }

// SetActiveThread reassigns the active thread. This is only permitted
// onto a thread that is both tracked and currently reaped (i.e. known
// to be stopped) — switching onto a running thread would let
// register/step operations race the kernel.
func (s *Session) SetActiveThread(tid proc.ThreadId) error {
	if !s.threads.Contains(tid) {
		return fmt.Errorf("thread %d is not tracked", tid)
	}
	if !s.reaped.Contains(tid) {
		return fmt.Errorf("thread %d is not stopped", tid)
	}
	s.activeTid = tid
	return nil
}

func (s *Session) attached() bool { return s.pid != proc.NoProcess }

// HasThreads reports whether any thread is still tracked, letting a
// caller distinguish "the debuggee fully exited" from "still running"
// after a DebugEvent whose raw status decodes as WIFEXITED.
func (s *Session) HasThreads() bool { return s.threads.Len() > 0 }
