package proc

import "golang.org/x/sys/unix"

// ResumeStatus is the status a caller supplies to Session.Resume or
// Session.Step, controlling how the active thread's pending signal is
// delivered.
type ResumeStatus int

const (
	// ContinueHandled means the signal that stopped the active thread
	// was handled by the caller; it is consumed (resumed with code 0).
	ContinueHandled ResumeStatus = iota
	// ContinueUnhandled means the signal was not handled; it is passed
	// through to the debuggee on resume.
	ContinueUnhandled
	// Stop is a no-op resume: the active thread, and every other
	// thread, stays stopped.
	Stop
)

// ResumeCode derives the signal number to redeliver to a thread being
// resumed, given the raw wait status it last stopped with:
//
//   - stopped with SIGSTOP: consumed, resume with 0
//   - terminated by a signal: resume with that signal
//   - stopped with any other signal: resume with that signal
//   - anything else (e.g. exited): resume with 0
func ResumeCode(ws unix.WaitStatus) int {
	switch {
	case ws.Stopped() && ws.StopSignal() == unix.SIGSTOP:
		return 0
	case ws.Signaled():
		return int(ws.Signal())
	case ws.Stopped():
		return int(ws.StopSignal())
	default:
		return 0
	}
}
