package native

import (
	sys "golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/logflags"
	"github.com/coredbg/coredbg/pkg/proc"
)

// stopThreads walks the Thread Table and forces every not-yet-reaped
// thread into a stopped-and-reaped state. A thread that stops with a
// signal other than SIGSTOP is logged but still considered stopped:
// its recorded status is preserved so resume can replay whatever
// signal it was actually interrupted by (the signal-passthrough
// requirement in the Design Notes).
//
// Invariant on return (barring the thread having exited mid-pass,
// which removes it from both the table and the reaped set): every
// tracked thread is in the ReapedSet.
func (s *Session) stopThreads() error {
	for _, tid := range s.threads.Ids() {
		if s.reaped.Contains(tid) {
			continue
		}
		if err := s.stopOneThread(tid); err != nil {
			logflags.StopWorldLogger().WithError(err).WithField("tid", tid).Warn("stop_threads: could not stop thread")
		}
	}
	return nil
}

func (s *Session) stopOneThread(tid proc.ThreadId) error {
	var killErr error
	s.execPtraceFunc(func() { killErr = sys.Tgkill(int(s.pid), int(tid), sys.SIGSTOP) })
	if killErr != nil {
		if killErr == sys.ESRCH {
			s.threads.Delete(tid)
			s.reaped.Remove(tid)
			return nil
		}
		return proc.KernelRefused{Op: "stop_threads:kill", Tid: tid, Errno: killErr}
	}

	var ws sys.WaitStatus
	var wpid int
	var waitErr error
	s.execPtraceFunc(func() {
		wpid, waitErr = sys.Wait4(int(tid), &ws, sys.WALL, nil)
	})
	if waitErr != nil {
		return proc.KernelRefused{Op: "stop_threads:wait", Tid: tid, Errno: waitErr}
	}
	if wpid == int(tid) && (ws.Exited() || ws.Signaled()) {
		s.threads.Delete(tid)
		s.reaped.Remove(tid)
		return nil
	}
	if wpid != int(tid) || !ws.Stopped() {
		return nil
	}

	if ws.StopSignal() != sys.SIGSTOP {
		logflags.StopWorldLogger().WithField("tid", tid).WithField("signal", ws.StopSignal()).
			Warn(proc.UnexpectedStop{Tid: tid, Signal: int(ws.StopSignal())}.Error())
	}

	s.threads.Insert(tid, &proc.ThreadRecord{LastStatus: int(ws), State: proc.ThreadStopped})
	s.reaped.Add(tid)
	return nil
}
