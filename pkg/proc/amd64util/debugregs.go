package amd64util

import (
	"errors"
	"fmt"
)

// DebugRegisters is a view over a thread's six live debug registers
// (DR0-DR3, DR6, DR7), described in the Intel 64 and IA-32
// Architectures Software Developer's Manual, Vol. 3B, section 17.2.
// It wraps the backing array in place so that mutations are visible to
// the caller once it writes DebugRegs back with PTRACE_POKEUSR.
type DebugRegisters struct {
	regs  *[8]uint64
	Dirty bool
}

// NewDebugRegisters wraps a RegisterBank.DebugRegs array. Indices 4 and
// 5 are never touched, matching the architecture's reservation of DR4
// and DR5.
func NewDebugRegisters(regs *[8]uint64) *DebugRegisters {
	return &DebugRegisters{regs: regs}
}

func lenrwBitsOffset(idx uint8) uint8 {
	return 16 + idx*4
}

func enableBitOffset(idx uint8) uint8 {
	return idx * 2
}

func (drs *DebugRegisters) dr7() uint64      { return drs.regs[7] }
func (drs *DebugRegisters) setDr7(v uint64)  { drs.regs[7] = v }
func (drs *DebugRegisters) dr6() uint64      { return drs.regs[6] }

func (drs *DebugRegisters) breakpoint(idx uint8) (addr uint64, read, write bool, sz int) {
	enable := drs.dr7() & (1 << enableBitOffset(idx))
	if enable == 0 {
		return 0, false, false, 0
	}

	addr = drs.regs[idx]
	lenrw := (drs.dr7() >> lenrwBitsOffset(idx)) & 0xf
	write = (lenrw & 0x1) != 0
	read = (lenrw & 0x2) != 0
	switch lenrw >> 2 {
	case 0x0:
		sz = 1
	case 0x1:
		sz = 2
	case 0x2:
		sz = 8 // sic, per the SDM's encoding table
	case 0x3:
		sz = 4
	}
	return addr, read, write, sz
}

// SetBreakpoint sets hardware breakpoint slot idx (0-3) to the given
// address, access type and size. If the slot is already programmed
// with matching parameters this is a no-op; if it's programmed with
// different parameters it is an error.
func (drs *DebugRegisters) SetBreakpoint(idx uint8, addr uint64, read, write bool, sz int) error {
	if idx >= 4 {
		return fmt.Errorf("hardware breakpoints exhausted")
	}
	curaddr, curread, curwrite, cursz := drs.breakpoint(idx)
	if curaddr != 0 {
		if (curaddr != addr) || (curread != read) || (curwrite != write) || (cursz != sz) {
			return fmt.Errorf("hardware breakpoint %d already in use (address %#x)", idx, curaddr)
		}
		return nil
	}

	if read && !write {
		return errors.New("break on read only not supported")
	}

	drs.regs[idx] = addr
	var lenrw uint64
	if write {
		lenrw |= 0x1
	}
	if read {
		lenrw |= 0x2
	}
	switch sz {
	case 1:
	case 2:
		lenrw |= 0x1 << 2
	case 4:
		lenrw |= 0x3 << 2
	case 8:
		lenrw |= 0x2 << 2
	default:
		return fmt.Errorf("data breakpoint of size %d not supported", sz)
	}
	dr7 := drs.dr7()
	dr7 &^= 0xf << lenrwBitsOffset(idx)
	dr7 |= lenrw << lenrwBitsOffset(idx)
	dr7 |= 1 << enableBitOffset(idx)
	drs.setDr7(dr7)
	drs.Dirty = true
	return nil
}

// ClearBreakpoint disables hardware breakpoint slot idx.
func (drs *DebugRegisters) ClearBreakpoint(idx uint8) {
	if drs.dr7()&(1<<enableBitOffset(idx)) == 0 {
		return
	}
	drs.setDr7(drs.dr7() &^ (1 << enableBitOffset(idx)))
	drs.Dirty = true
}

// GetActiveBreakpoint returns the hardware breakpoint slot that just
// fired, clearing DR6's condition bits since it is the caller's
// responsibility to acknowledge them.
func (drs *DebugRegisters) GetActiveBreakpoint() (ok bool, idx uint8) {
	for idx := uint8(0); idx < 4; idx++ {
		if drs.dr7()&(1<<enableBitOffset(idx)) == 0 {
			continue
		}
		if drs.dr6()&(1<<idx) != 0 {
			drs.regs[6] &^= 0xf
			drs.Dirty = true
			return true, idx
		}
	}
	return false, 0
}
