package native

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	sys "golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/proc"
)

// This file is the state machine composing every other component in
// this package into open, attach, detach, kill, pause, resume and
// step.

const ptraceOptions = syscall.PTRACE_O_TRACECLONE

// Open launches path under trace, with args as its argument vector and
// cwd as its working directory (empty means inherit). If tty is
// non-empty it is opened and wired up as the child's stdin/stdout/
// stderr in place of this process's own.
func (s *Session) Open(path, cwd string, args []string, tty string) error {
	if s.attached() {
		return fmt.Errorf("session already attached to pid %d", s.pid)
	}

	var ttyFile *os.File
	if tty != "" {
		var err error
		ttyFile, err = os.OpenFile(tty, os.O_RDWR, 0)
		if err != nil {
			return fmt.Errorf("opening tty %s: %w", tty, err)
		}
		defer ttyFile.Close()
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = cwd
	cmd.SysProcAttr = &syscall.SysProcAttr{Ptrace: true, Setpgid: true}
	if ttyFile != nil {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = ttyFile, ttyFile, ttyFile
	} else {
		cmd.Stdin, cmd.Stdout, cmd.Stderr = os.Stdin, os.Stdout, os.Stderr
	}

	var startErr error
	s.execPtraceFunc(func() { startErr = cmd.Start() })
	if startErr != nil {
		return fmt.Errorf("starting %s: %w", path, startErr)
	}

	pid := proc.ProcessId(cmd.Process.Pid)
	mainTid := proc.ThreadId(cmd.Process.Pid)

	ws, err := s.blockingWait(int(mainTid))
	if err != nil {
		_ = ptKill(pid)
		return fmt.Errorf("waiting for initial trap: %w", err)
	}
	if ws.Exited() {
		return fmt.Errorf("child exited before reaching initial trap")
	}

	var optErr error
	s.execPtraceFunc(func() { optErr = ptSetOptions(mainTid, ptraceOptions) })
	if optErr != nil {
		_ = ptKill(pid)
		return fmt.Errorf("set_options on main thread: %w", optErr)
	}

	s.pid = pid
	s.threads.Reset()
	s.reaped.Reset()
	s.threads.Insert(mainTid, &proc.ThreadRecord{LastStatus: int(ws), State: proc.ThreadStopped})
	s.reaped.Add(mainTid)
	s.activeTid = mainTid
	s.eventTid = mainTid
	return nil
}

// Attach attaches to an already-running process by pid, iterating its
// task directory to a fixed point: each pass attaches every thread not
// yet tracked, and the loop terminates only once a full pass finds no
// new thread. This handles races where the debuggee spawns threads
// during attach.
func (s *Session) Attach(pid proc.ProcessId) error {
	if s.attached() {
		return fmt.Errorf("session already attached to pid %d", s.pid)
	}

	s.pid = pid
	s.threads.Reset()
	s.reaped.Reset()

	for {
		tids, err := listTasks(pid)
		if err != nil {
			s.rollbackFailedAttach()
			return fmt.Errorf("listing tasks of pid %d: %w", pid, err)
		}

		foundNew := false
		for _, tid := range tids {
			if s.threads.Contains(tid) {
				continue
			}
			foundNew = true
			if err := s.attachOneThread(tid); err != nil {
				if _, isRace := err.(proc.RaceLost); isRace {
					s.log.WithField("tid", tid).Debug("thread exited before it could be attached")
					continue
				}
				s.rollbackFailedAttach()
				return err
			}
		}
		if !foundNew {
			break
		}
	}

	if s.threads.Len() == 0 {
		s.rollbackFailedAttach()
		return fmt.Errorf("no threads found for pid %d", pid)
	}

	if s.threads.Contains(proc.ThreadId(pid)) {
		s.activeTid = proc.ThreadId(pid)
	} else {
		for _, tid := range s.threads.Ids() {
			s.activeTid = tid
			break
		}
	}
	s.eventTid = s.activeTid
	return nil
}

func (s *Session) attachOneThread(tid proc.ThreadId) error {
	var attachErr error
	s.execPtraceFunc(func() { attachErr = ptAttach(tid) })
	if attachErr != nil {
		// EPERM here usually means the kernel is already tracing this
		// thread (it arrived via PTRACE_O_TRACECLONE on a sibling);
		// press on rather than failing the whole attach.
		if kr, ok := attachErr.(proc.KernelRefused); !ok || kr.Errno != sys.EPERM {
			return proc.RaceLost{Tid: tid}
		}
	}

	ws, err := s.blockingWait(int(tid))
	if err != nil {
		return proc.RaceLost{Tid: tid}
	}
	if ws.Exited() {
		return proc.RaceLost{Tid: tid}
	}

	var optErr error
	s.execPtraceFunc(func() { optErr = ptSetOptions(tid, ptraceOptions) })
	if optErr != nil {
		return proc.KernelRefused{Op: "attach:set_options", Tid: tid, Errno: optErr}
	}

	s.threads.Insert(tid, &proc.ThreadRecord{LastStatus: int(ws), State: proc.ThreadStopped})
	s.reaped.Add(tid)
	return nil
}

// rollbackFailedAttach detaches whatever threads were attached before
// the failure and resets session state, so a failed attach leaves
// nothing half-tracked behind it.
func (s *Session) rollbackFailedAttach() {
	for _, tid := range s.threads.Ids() {
		s.execPtraceFunc(func() { _ = ptDetach(tid, 0) })
	}
	s.resetState()
}

// Detach stops every thread, clears breakpoints, detaches each thread
// and resets session state.
func (s *Session) Detach() error {
	if !s.attached() {
		return nil
	}
	if err := s.stopThreads(); err != nil {
		s.log.WithError(err).Warn("detach: stop_threads failed")
	}
	s.clearBreakpoints()

	for _, tid := range s.threads.Ids() {
		rec, _ := s.threads.Get(tid)
		code := 0
		if rec != nil {
			code = proc.ResumeCode(sys.WaitStatus(rec.LastStatus))
		}
		s.execPtraceFunc(func() { _ = ptDetach(tid, code) })
	}

	s.resetState()
	return nil
}

// Kill clears breakpoints, kills the process and reaps it.
func (s *Session) Kill() error {
	if !s.attached() {
		return nil
	}
	s.clearBreakpoints()

	if err := ptKill(s.pid); err != nil {
		s.log.WithError(err).Warn("kill: SIGKILL delivery failed")
	}
	for _, tid := range s.threads.Ids() {
		_, _ = s.blockingWait(int(tid))
	}

	s.resetState()
	return nil
}

// Pause sends SIGSTOP to the whole process. The stop propagates to one
// thread, whose next wait_debug_event surfaces a signal-delivery stop
// and triggers the Stop-the-World Coordinator.
func (s *Session) Pause() error {
	if !s.attached() {
		return fmt.Errorf("no attached process")
	}
	var err error
	s.execPtraceFunc(func() { err = sys.Kill(int(s.pid), sys.SIGSTOP) })
	if err != nil {
		return proc.KernelRefused{Op: "pause", Tid: s.activeTid, Errno: err}
	}
	return nil
}

// Resume continues the active thread with the signal code its
// ResumeStatus implies, then continues every other currently-reaped
// thread with the signal code it last stopped with. STOP is a no-op.
func (s *Session) Resume(status proc.ResumeStatus) error {
	if status == proc.Stop {
		return nil
	}
	if !s.attached() {
		return fmt.Errorf("no attached process")
	}

	if s.activeTid != proc.NoThread {
		code := s.activeResumeCode(status)
		s.continueOneThread(s.activeTid, code)
	}

	for _, tid := range s.reaped.Ids() {
		if tid == s.activeTid {
			continue
		}
		rec, ok := s.threads.Get(tid)
		code := 0
		if ok {
			code = proc.ResumeCode(sys.WaitStatus(rec.LastStatus))
		}
		s.continueOneThread(tid, code)
	}
	return nil
}

// Step single-steps the active thread with the signal code its
// ResumeStatus implies. Other threads are left stopped.
func (s *Session) Step(status proc.ResumeStatus) error {
	if status == proc.Stop {
		return nil
	}
	if !s.attached() || s.activeTid == proc.NoThread {
		return fmt.Errorf("no active thread")
	}

	code := s.activeResumeCode(status)
	tid := s.activeTid
	s.reaped.Remove(tid)
	var err error
	s.execPtraceFunc(func() { err = ptStep(tid, code) })
	if err != nil {
		return err
	}
	return nil
}

// activeResumeCode derives the signal the active thread resumes with:
// CONTINUE-HANDLED consumes it (code 0); CONTINUE-UNHANDLED passes
// through whatever it last stopped with.
func (s *Session) activeResumeCode(status proc.ResumeStatus) int {
	if status == proc.ContinueHandled {
		return 0
	}
	rec, ok := s.threads.Get(s.activeTid)
	if !ok {
		return 0
	}
	return proc.ResumeCode(sys.WaitStatus(rec.LastStatus))
}

func (s *Session) continueOneThread(tid proc.ThreadId, code int) {
	s.reaped.Remove(tid)
	s.execPtraceFunc(func() {
		if err := ptContinue(tid, code); err != nil {
			s.log.WithError(err).WithField("tid", tid).Warn("resume: continue failed")
		}
	})
}

// clearBreakpoints restores the original byte at every installed
// breakpoint before detach/kill tears down memory access.
func (s *Session) clearBreakpoints() {
	for _, addr := range s.breakpoints.Addresses() {
		if err := s.RemoveBreakpoint(addr); err != nil {
			s.log.WithError(err).WithField("addr", addr).Warn("clear_breakpoints: restore failed")
		}
	}
}

func (s *Session) resetState() {
	s.pid = proc.NoProcess
	s.activeTid = proc.NoThread
	s.eventTid = proc.NoThread
	s.threads.Reset()
	s.reaped.Reset()
	s.breakpoints.Reset()
	s.binInfo = nil
}

// blockingWait reaps tid, blocking until it stops or exits.
func (s *Session) blockingWait(tid int) (sys.WaitStatus, error) {
	var ws sys.WaitStatus
	var err error
	s.execPtraceFunc(func() {
		_, err = sys.Wait4(tid, &ws, sys.WALL, nil)
	})
	return ws, err
}
