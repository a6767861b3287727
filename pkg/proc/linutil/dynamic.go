package linutil

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/coredbg/coredbg/pkg/proc"
)

const (
	maxNumLibraries      = 1000000 // avoid looping forever on a corrupted rendezvous list
	maxLibraryPathLength = 1000000 // avoid looping forever on a corrupted name pointer
)

// ErrTooManyLibraries is returned by WalkRendezvous when the rendezvous
// list looks corrupted (a cycle, or simply absurdly long).
var ErrTooManyLibraries = errors.New("number of loaded libraries exceeds maximum")

// readUintRaw reads an integer of ptrSize bytes, little-endian.
func readUintRaw(r io.Reader, ptrSize int) (uint64, error) {
	switch ptrSize {
	case 4:
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return 0, err
		}
		return uint64(n), nil
	case 8:
		var n uint64
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return 0, err
		}
		return n, nil
	}
	return 0, fmt.Errorf("unsupported pointer size %d", ptrSize)
}

func readPtr(mem proc.MemoryReader, ptrSize int, addr proc.Address) (uint64, error) {
	buf := make([]byte, ptrSize)
	if _, err := mem.ReadMemory(buf, addr); err != nil {
		return 0, err
	}
	return readUintRaw(bytes.NewReader(buf), ptrSize)
}

func readCString(mem proc.MemoryReader, addr proc.Address) (string, error) {
	if addr == 0 {
		return "", nil
	}
	buf := make([]byte, 1)
	var r []byte
	for {
		if len(r) > maxLibraryPathLength {
			return "", fmt.Errorf("error reading library name: string too long (%d)", len(r))
		}
		if _, err := mem.ReadMemory(buf, addr); err != nil {
			return "", err
		}
		if buf[0] == 0 {
			break
		}
		r = append(r, buf[0])
		addr++
	}
	return string(r), nil
}

type linkMapNode struct {
	addr       uint64
	name       string
	ld         uint64
	next, prev uint64
}

// readLinkMapNode reads a single struct link_map, laid out per
// <link.h>:
//
//	ElfW(Addr) l_addr;   // offset 0
//	char      *l_name;   // offset ptrSize
//	ElfW(Dyn) *l_ld;      // offset 2*ptrSize
//	struct link_map *l_next, *l_prev; // offset 3*ptrSize, 4*ptrSize
func readLinkMapNode(mem proc.MemoryReader, ptrSize int, addr uint64) (*linkMapNode, error) {
	var ptrs [5]uint64
	for i := range ptrs {
		v, err := readPtr(mem, ptrSize, proc.Address(addr+uint64(ptrSize*i)))
		if err != nil {
			return nil, err
		}
		ptrs[i] = v
	}
	name, err := readCString(mem, proc.Address(ptrs[1]))
	if err != nil {
		return nil, err
	}
	return &linkMapNode{addr: ptrs[0], name: name, ld: ptrs[2], next: ptrs[3], prev: ptrs[4]}, nil
}

// WalkRendezvous implements the primary path of the Module Enumerator:
// given the address of the dynamic linker's r_debug structure (what
// BinaryInfo.DebugPointer returns), it reads r_debug.r_map and walks
// the link_map list, emitting a Module for every node whose l_addr is
// non-zero.
//
// r_debug is laid out as:
//
//	int r_version;           // offset 0 (padded to ptrSize)
//	struct link_map *r_map;  // offset ptrSize
//	...
func WalkRendezvous(mem proc.MemoryReader, ptrSize int, debugAddr proc.Address) ([]proc.Module, error) {
	if debugAddr == 0 {
		return nil, nil
	}

	rMapOffset := uint64(ptrSize)
	rMap, err := readPtr(mem, ptrSize, debugAddr+proc.Address(rMapOffset))
	if err != nil {
		return nil, err
	}

	var modules []proc.Module
	first := true
	for rMap != 0 {
		if len(modules) > maxNumLibraries {
			return modules, ErrTooManyLibraries
		}
		node, err := readLinkMapNode(mem, ptrSize, rMap)
		if err != nil {
			return modules, err
		}
		if node.addr != 0 {
			modules = append(modules, proc.Module{Name: node.name, BaseAddress: proc.Address(node.addr)})
		}
		_ = first
		first = false
		rMap = node.next
	}
	return modules, nil
}
