package linutil

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coredbg/coredbg/pkg/proc"
)

// fakeMemory is a flat byte-addressed address space for exercising the
// rendezvous walk without a real debuggee.
type fakeMemory struct {
	base proc.Address
	buf  []byte
}

func newFakeMemory(base proc.Address, size int) *fakeMemory {
	return &fakeMemory{base: base, buf: make([]byte, size)}
}

func (m *fakeMemory) ReadMemory(buf []byte, addr proc.Address) (int, error) {
	off := int(addr - m.base)
	n := copy(buf, m.buf[off:])
	return n, nil
}

func (m *fakeMemory) putUint64(addr proc.Address, v uint64) {
	binary.LittleEndian.PutUint64(m.buf[addr-m.base:], v)
}

func (m *fakeMemory) putCString(addr proc.Address, s string) {
	copy(m.buf[addr-m.base:], append([]byte(s), 0))
}

func TestWalkRendezvous_zeroDebugAddrIsNoop(t *testing.T) {
	mods, err := WalkRendezvous(newFakeMemory(0, 16), 8, 0)
	assert.NoError(t, err)
	assert.Nil(t, mods)
}

func TestWalkRendezvous_walksTwoNodeChain(t *testing.T) {
	const ptrSize = 8
	const base = proc.Address(0x1000)
	mem := newFakeMemory(base, 0x2000)

	debugAddr := base
	node1 := base + 0x100
	node2 := base + 0x200
	name1 := base + 0x300
	name2 := base + 0x400

	// r_debug: r_version at offset 0, r_map at offset ptrSize.
	mem.putUint64(debugAddr+ptrSize, uint64(node1))

	// link_map node1: l_addr, l_name, l_ld, l_next, l_prev
	mem.putUint64(node1+0*ptrSize, 0x400000)
	mem.putUint64(node1+1*ptrSize, uint64(name1))
	mem.putUint64(node1+2*ptrSize, 0)
	mem.putUint64(node1+3*ptrSize, uint64(node2))
	mem.putUint64(node1+4*ptrSize, 0)
	mem.putCString(name1, "/usr/bin/target")

	// link_map node2: terminal node.
	mem.putUint64(node2+0*ptrSize, 0x7f0000000000)
	mem.putUint64(node2+1*ptrSize, uint64(name2))
	mem.putUint64(node2+2*ptrSize, 0)
	mem.putUint64(node2+3*ptrSize, 0)
	mem.putUint64(node2+4*ptrSize, uint64(node1))
	mem.putCString(name2, "/lib/x86_64-linux-gnu/libc.so.6")

	mods, err := WalkRendezvous(mem, ptrSize, debugAddr)
	assert.NoError(t, err)
	assert.Len(t, mods, 2)
	assert.Equal(t, "/usr/bin/target", mods[0].Name)
	assert.Equal(t, proc.Address(0x400000), mods[0].BaseAddress)
	assert.Equal(t, "/lib/x86_64-linux-gnu/libc.so.6", mods[1].Name)
	assert.Equal(t, proc.Address(0x7f0000000000), mods[1].BaseAddress)
}

func TestWalkRendezvous_skipsNodesWithZeroAddr(t *testing.T) {
	const ptrSize = 8
	const base = proc.Address(0x1000)
	mem := newFakeMemory(base, 0x1000)

	debugAddr := base
	node1 := base + 0x100
	mem.putUint64(debugAddr+ptrSize, uint64(node1))

	// l_addr is zero: the executable's own link_map entry on some libcs.
	mem.putUint64(node1+0*ptrSize, 0)
	mem.putUint64(node1+1*ptrSize, 0)
	mem.putUint64(node1+2*ptrSize, 0)
	mem.putUint64(node1+3*ptrSize, 0)
	mem.putUint64(node1+4*ptrSize, 0)

	mods, err := WalkRendezvous(mem, ptrSize, debugAddr)
	assert.NoError(t, err)
	assert.Empty(t, mods)
}
