package native

import (
	"errors"

	"github.com/coredbg/coredbg/pkg/proc"
)

var errNoActiveThread = errors.New("no active thread")

// CreateState allocates a RegisterBank shaped for this session's
// architecture.
func (s *Session) CreateState() *proc.RegisterBank {
	return proc.NewRegisterBank(s.arch)
}

// GetState runs get_state() against the active thread.
func (s *Session) GetState(out *proc.RegisterBank) error {
	if s.activeTid == proc.NoThread {
		return proc.KernelRefused{Op: "get_state", Tid: s.activeTid, Errno: errNoActiveThread}
	}
	if s.arch == proc.Arch386 {
		return s.getState386(s.activeTid, out)
	}
	return s.getStateAMD64(s.activeTid, out)
}

// SetState runs set_state(in) against the active thread.
func (s *Session) SetState(in *proc.RegisterBank) error {
	if s.activeTid == proc.NoThread {
		return proc.KernelRefused{Op: "set_state", Tid: s.activeTid, Errno: errNoActiveThread}
	}
	if s.arch == proc.Arch386 {
		return s.setState386(s.activeTid, in)
	}
	return s.setStateAMD64(s.activeTid, in)
}
