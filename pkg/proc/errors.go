package proc

import "fmt"

// KernelRefused indicates a tracing syscall returned failure.
type KernelRefused struct {
	Op    string
	Tid   ThreadId
	Errno error
}

func (e KernelRefused) Error() string {
	return fmt.Sprintf("kernel refused %s on thread %d: %v", e.Op, e.Tid, e.Errno)
}

// RaceLost indicates a thread vanished between enumeration and attach.
// The attach fixed-point loop treats this as expected and retries.
type RaceLost struct {
	Tid ThreadId
}

func (e RaceLost) Error() string {
	return fmt.Sprintf("thread %d exited before it could be attached", e.Tid)
}

// UnexpectedStop indicates a thread was expected to stop with SIGSTOP
// (usually because the Stop-the-World Coordinator sent it one) but
// stopped with a different signal. Not fatal: the alternate signal is
// preserved in Signal for replay on the next resume.
type UnexpectedStop struct {
	Tid    ThreadId
	Signal int
}

func (e UnexpectedStop) Error() string {
	return fmt.Sprintf("thread %d stopped with signal %d instead of SIGSTOP", e.Tid, e.Signal)
}

// MalformedProc indicates a /proc record did not parse into the
// expected number of whitespace-delimited fields. FieldCount is how
// many fields were actually recovered; the caller still receives a
// best-effort partial record.
type MalformedProc struct {
	Path       string
	FieldCount int
}

func (e MalformedProc) Error() string {
	return fmt.Sprintf("malformed proc record at %s: only %d fields parsed", e.Path, e.FieldCount)
}

// MemoryReadFailed indicates the debuggee's memory file could not be
// opened or read. Any bytes of the destination buffer beyond what was
// actually read are unspecified.
type MemoryReadFailed struct {
	Tid     ThreadId
	Address Address
	Err     error
}

func (e MemoryReadFailed) Error() string {
	return fmt.Sprintf("could not read memory of thread %d at %#x: %v", e.Tid, e.Address, e.Err)
}

// Unsupported indicates a register-set acquisition mode is unavailable
// on the running kernel/CPU combination. Callers fall back silently;
// this type exists so the fallback decision can be logged.
type Unsupported struct {
	Feature string
	Reason  error
}

func (e Unsupported) Error() string {
	return fmt.Sprintf("%s unsupported: %v", e.Feature, e.Reason)
}
