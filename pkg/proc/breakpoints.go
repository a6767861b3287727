package proc

// Breakpoint records the address a software breakpoint was installed
// at and the byte it overwrote, so Memory I/O can present the original
// byte to readers and the Session Controller can restore it on removal.
type Breakpoint struct {
	Address      Address
	OriginalByte byte
}

// BreakpointSet is a mapping Address -> Breakpoint with unique keys. It
// is consulted by Memory I/O to mask trap bytes out of read results,
// per the breakpoint-transparency invariant.
type BreakpointSet struct {
	bps map[Address]*Breakpoint
}

// NewBreakpointSet returns an empty BreakpointSet.
func NewBreakpointSet() *BreakpointSet {
	return &BreakpointSet{bps: make(map[Address]*Breakpoint)}
}

// Insert records a breakpoint at addr with the given original byte.
func (s *BreakpointSet) Insert(addr Address, originalByte byte) *Breakpoint {
	bp := &Breakpoint{Address: addr, OriginalByte: originalByte}
	s.bps[addr] = bp
	return bp
}

// Get returns the breakpoint at addr, if any.
func (s *BreakpointSet) Get(addr Address) (*Breakpoint, bool) {
	bp, ok := s.bps[addr]
	return bp, ok
}

// Remove deletes the breakpoint at addr.
func (s *BreakpointSet) Remove(addr Address) {
	delete(s.bps, addr)
}

// Len returns the number of installed breakpoints.
func (s *BreakpointSet) Len() int {
	return len(s.bps)
}

// Reset clears every breakpoint, used on detach/kill.
func (s *BreakpointSet) Reset() {
	s.bps = make(map[Address]*Breakpoint)
}

// Addresses returns every installed breakpoint's address, in
// unspecified order. Used by detach/kill to restore original bytes
// before tearing down the session.
func (s *BreakpointSet) Addresses() []Address {
	addrs := make([]Address, 0, len(s.bps))
	for addr := range s.bps {
		addrs = append(addrs, addr)
	}
	return addrs
}

// InRange returns every breakpoint whose address lies within
// [start, start+length), in unspecified order.
func (s *BreakpointSet) InRange(start Address, length int) []*Breakpoint {
	end := start + Address(length)
	var out []*Breakpoint
	for addr, bp := range s.bps {
		if addr >= start && addr < end {
			out = append(out, bp)
		}
	}
	return out
}
