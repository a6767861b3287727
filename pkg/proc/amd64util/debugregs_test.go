package amd64util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetBreakpoint_writesAddrAndEnablesSlot(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)

	err := drs.SetBreakpoint(0, 0x4000, false, true, 4)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x4000), regs[0])
	assert.NotZero(t, regs[7]&(1<<enableBitOffset(0)))
	assert.True(t, drs.Dirty)
}

func TestSetBreakpoint_idempotentOnIdenticalParams(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)

	assert.NoError(t, drs.SetBreakpoint(1, 0x5000, true, true, 8))
	drs.Dirty = false
	assert.NoError(t, drs.SetBreakpoint(1, 0x5000, true, true, 8))
	assert.False(t, drs.Dirty, "re-setting an identical breakpoint must be a no-op")
}

func TestSetBreakpoint_conflictingParamsRejected(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)

	assert.NoError(t, drs.SetBreakpoint(2, 0x6000, false, true, 4))
	err := drs.SetBreakpoint(2, 0x7000, false, true, 4)
	assert.Error(t, err)
}

func TestSetBreakpoint_readOnlyRejected(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)
	assert.Error(t, drs.SetBreakpoint(0, 0x4000, true, false, 4))
}

func TestSetBreakpoint_exhaustedSlot(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)
	assert.Error(t, drs.SetBreakpoint(4, 0x4000, false, true, 4))
}

func TestClearBreakpoint_disablesSlot(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)
	assert.NoError(t, drs.SetBreakpoint(0, 0x4000, false, true, 4))

	drs.ClearBreakpoint(0)
	assert.Zero(t, regs[7]&(1<<enableBitOffset(0)))
}

func TestGetActiveBreakpoint_reportsFiredSlotAndClearsDr6(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)
	assert.NoError(t, drs.SetBreakpoint(2, 0x4000, false, true, 4))

	regs[6] |= 1 << 2 // simulate the CPU setting DR6's condition bit for slot 2

	ok, idx := drs.GetActiveBreakpoint()
	assert.True(t, ok)
	assert.Equal(t, uint8(2), idx)
	assert.Zero(t, regs[6]&0xf, "DR6's condition bits must be cleared after acknowledgment")
}

func TestGetActiveBreakpoint_noneFired(t *testing.T) {
	var regs [8]uint64
	drs := NewDebugRegisters(&regs)
	ok, _ := drs.GetActiveBreakpoint()
	assert.False(t, ok)
}
