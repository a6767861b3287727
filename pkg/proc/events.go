package proc

// SigInfo carries the leading, architecture-stable fields of a Linux
// siginfo_t (si_signo, si_errno, si_code) retrieved via
// PTRACE_GETSIGINFO when a thread stops for a signal-delivery reason.
type SigInfo struct {
	Signal int32
	Errno  int32
	Code   int32
}

// DebugEvent is produced by the Event Pump when a thread stops for a
// reportable reason: everything but clone notifications and thread
// exits that leave other threads alive.
type DebugEvent struct {
	Pid       ProcessId
	Tid       ThreadId
	RawStatus int
	SigInfo   SigInfo
}
