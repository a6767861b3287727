package native

import (
	"fmt"
	"os"

	"github.com/coredbg/coredbg/pkg/proc"
)

// ReadWord reads one native machine word at addr via PTRACE_PEEKTEXT
// against the active thread. ok reflects whether the kernel call
// succeeded.
func (s *Session) ReadWord(addr proc.Address) (word uint64, ok bool) {
	s.execPtraceFunc(func() { word, ok = ptPeekText(s.activeTid, addr) })
	return
}

// WriteWord writes one native machine word at addr via
// PTRACE_POKETEXT against the active thread.
func (s *Session) WriteWord(addr proc.Address, word uint64) bool {
	var ok bool
	s.execPtraceFunc(func() { ok = ptPokeText(s.activeTid, addr, word) })
	return ok
}

func (s *Session) openMem(write bool) (*os.File, error) {
	flag := os.O_RDONLY
	if write {
		flag = os.O_RDWR
	}
	return os.OpenFile(fmt.Sprintf("/proc/%d/mem", s.pid), flag, 0)
}

// readRaw reads len(buf) bytes at addr through the debuggee's memory
// file, opened and closed for this call alone — no handle is cached.
func (s *Session) readRaw(buf []byte, addr proc.Address) (int, error) {
	if s.pid == proc.NoProcess {
		return 0, proc.MemoryReadFailed{Tid: s.activeTid, Address: addr, Err: fmt.Errorf("no attached process")}
	}
	f, err := s.openMem(false)
	if err != nil {
		return 0, proc.MemoryReadFailed{Tid: s.activeTid, Address: addr, Err: err}
	}
	defer f.Close()

	n, err := f.ReadAt(buf, int64(addr))
	if n == 0 && err != nil {
		return 0, proc.MemoryReadFailed{Tid: s.activeTid, Address: addr, Err: err}
	}
	return n, nil
}

// maskBreakpoints restores, in buf[:n] (read starting at addr), the
// original byte of any installed breakpoint that falls within the
// read range, so a caller never sees the trap instruction it didn't
// write itself.
func (s *Session) maskBreakpoints(buf []byte, addr proc.Address, n int) {
	for _, bp := range s.breakpoints.InRange(addr, n) {
		off := int(bp.Address - addr)
		if off >= 0 && off < n {
			buf[off] = bp.OriginalByte
		}
	}
}

// ReadMemory implements proc.MemoryReader for the Module Enumerator's
// rendezvous walk and any other internal consumer that needs to read
// debuggee memory without page-granularity semantics.
func (s *Session) ReadMemory(buf []byte, addr proc.Address) (int, error) {
	n, err := s.readRaw(buf, addr)
	if err != nil {
		return n, err
	}
	s.maskBreakpoints(buf, addr, n)
	return n, nil
}

// WriteMemory implements proc.MemoryWriter: a direct write through the
// debuggee's memory file, used by breakpoint insertion/removal.
func (s *Session) WriteMemory(addr proc.Address, buf []byte) (int, error) {
	f, err := s.openMem(true)
	if err != nil {
		return 0, proc.MemoryReadFailed{Tid: s.activeTid, Address: addr, Err: err}
	}
	defer f.Close()
	return f.WriteAt(buf, int64(addr))
}

// ReadPages reads page_count*page_size bytes starting at addr into
// buf, then masks any breakpoint bytes within the range.
func (s *Session) ReadPages(addr proc.Address, buf []byte, pageCount int) (int, error) {
	length := pageCount * s.pageSize
	if length > len(buf) {
		length = len(buf)
	}
	n, err := s.readRaw(buf[:length], addr)
	if err != nil {
		return n, err
	}
	s.maskBreakpoints(buf, addr, n)
	return n, nil
}

// InstallBreakpoint reads the original byte at addr, records it, and
// writes the trap byte in its place.
func (s *Session) InstallBreakpoint(addr proc.Address, trapByte byte) (*proc.Breakpoint, error) {
	orig := make([]byte, 1)
	if _, err := s.readRaw(orig, addr); err != nil {
		return nil, err
	}
	if _, err := s.WriteMemory(addr, []byte{trapByte}); err != nil {
		return nil, err
	}
	return s.breakpoints.Insert(addr, orig[0]), nil
}

// RemoveBreakpoint restores the original byte at a previously
// installed breakpoint's address and forgets it.
func (s *Session) RemoveBreakpoint(addr proc.Address) error {
	bp, ok := s.breakpoints.Get(addr)
	if !ok {
		return fmt.Errorf("no breakpoint at %#x", addr)
	}
	if _, err := s.WriteMemory(addr, []byte{bp.OriginalByte}); err != nil {
		return err
	}
	s.breakpoints.Remove(addr)
	return nil
}
