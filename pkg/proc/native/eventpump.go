package native

import (
	"time"

	sys "golang.org/x/sys/unix"

	"github.com/coredbg/coredbg/pkg/logflags"
	"github.com/coredbg/coredbg/pkg/proc"
)

// wait_debug_event polls rather than blocking directly on a
// signal-child notification, because Go's runtime already intercepts
// SIGCHLD for its own process reaping; a short poll interval keeps the
// observable timeout behavior (including timeout_ms == 0, poll-only)
// while staying correct under that constraint.
const pollInterval = 2 * time.Millisecond

// WaitDebugEvent implements wait_debug_event(timeout_ms).
func (s *Session) WaitDebugEvent(timeoutMs int) (*proc.DebugEvent, error) {
	if !s.attached() {
		return nil, nil
	}

	deadline := time.Now().Add(time.Duration(timeoutMs) * time.Millisecond)
	for {
		var ws sys.WaitStatus
		var wpid int
		var err error
		s.execPtraceFunc(func() {
			wpid, err = sys.Wait4(-1, &ws, sys.WALL|sys.WNOHANG, nil)
		})
		if err != nil {
			return nil, err
		}
		if wpid > 0 {
			return s.handleEvent(proc.ThreadId(wpid), ws)
		}
		if timeoutMs <= 0 || !time.Now().Before(deadline) {
			return nil, nil
		}
		time.Sleep(pollInterval)
	}
}

func isCloneEvent(ws sys.WaitStatus) bool {
	cause := ws.TrapCause()
	return cause == sys.PTRACE_EVENT_CLONE || cause == sys.PTRACE_EVENT_VFORK
}

// handleEvent classifies a single reaped wait status: exit/signal
// termination, a thread-clone notification, or a genuine stop.
func (s *Session) handleEvent(tid proc.ThreadId, ws sys.WaitStatus) (*proc.DebugEvent, error) {
	switch {
	case ws.Exited() || ws.Signaled():
		s.threads.Delete(tid)
		s.reaped.Remove(tid)
		if s.threads.Len() > 0 {
			return nil, nil
		}
		return &proc.DebugEvent{Pid: s.pid, Tid: tid, RawStatus: int(ws)}, nil

	case ws.Stopped() && ws.StopSignal() == sys.SIGTRAP && isCloneEvent(ws):
		s.handleCloneEvent(tid)
		return nil, nil

	default:
		s.threads.Insert(tid, &proc.ThreadRecord{LastStatus: int(ws), State: proc.ThreadStopped})
		s.reaped.Add(tid)

		var sigInfo proc.SigInfo
		s.execPtraceFunc(func() { sigInfo, _ = ptGetSigInfo(tid) })

		s.activeTid = tid
		s.eventTid = tid

		ev := &proc.DebugEvent{Pid: s.pid, Tid: tid, RawStatus: int(ws), SigInfo: sigInfo}

		if err := s.stopThreads(); err != nil {
			logflags.EventPumpLogger().WithError(err).Warn("stop_threads failed during event dispatch")
		}
		return ev, nil
	}
}

// handleCloneEvent absorbs a clone notification: the new thread is
// inserted into the ThreadTable, block-reaped if its own SIGSTOP
// hasn't arrived yet, and both parent and child are resumed. Callers
// should only observe a stable thread set when the debuggee is
// quiescent, so clone is never itself a reportable event.
func (s *Session) handleCloneEvent(parent proc.ThreadId) {
	var newTid proc.ThreadId
	s.execPtraceFunc(func() {
		msg, err := ptGetEventMsg(parent)
		if err == nil {
			newTid = proc.ThreadId(msg)
		}
	})
	if newTid == proc.NoThread {
		s.execPtraceFunc(func() { ptContinue(parent, 0) })
		return
	}

	if !s.threads.Contains(newTid) {
		s.threads.Insert(newTid, &proc.ThreadRecord{State: proc.ThreadStopped})
	}

	if !s.reaped.Contains(newTid) {
		var childWs sys.WaitStatus
		var err error
		s.execPtraceFunc(func() {
			_, err = sys.Wait4(int(newTid), &childWs, sys.WALL, nil)
		})
		if err == nil {
			rec, _ := s.threads.Get(newTid)
			rec.LastStatus = int(childWs)
			rec.State = proc.ThreadStopped
			s.reaped.Add(newTid)
		}
	}

	rec, ok := s.threads.Get(newTid)
	childCode := 0
	if ok {
		childCode = proc.ResumeCode(sys.WaitStatus(rec.LastStatus))
	}
	s.execPtraceFunc(func() { _ = ptContinue(newTid, childCode) })
	s.reaped.Remove(newTid)

	s.execPtraceFunc(func() { _ = ptContinue(parent, 0) })
}
