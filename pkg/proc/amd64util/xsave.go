// Package amd64util holds the x86/x86-64-specific decoding the
// Register Bank needs but that isn't itself a ptrace call: parsing the
// XSAVE extended-state area and manipulating the debug-register
// control bits.
package amd64util

import (
	"bytes"
	"encoding/binary"

	"github.com/coredbg/coredbg/pkg/proc"
)

// maxKnownXstateSize is a conservative upper bound for the XSAVE area
// used to size the buffer passed to PTRACE_GETREGSET when the running
// CPU's actual component set isn't known in advance; oversized buffers
// are harmless, the kernel just reports the real length used.
const maxKnownXstateSize = 2969

// AMD64XstateMaxSize returns the buffer size to allocate before
// issuing PTRACE_GETREGSET(NT_X86_XSTATE). Precisely sizing this
// requires querying CPUID leaf 0x0d; this engine uses the
// architecture's documented upper bound instead of hand-written
// assembly, since an oversized buffer costs nothing but a few
// kilobytes and the kernel still reports the true length in the iovec.
func AMD64XstateMaxSize() int {
	return maxKnownXstateSize
}

const (
	xstateHeaderStart          = 512
	xstateHeaderLen            = 64
	xstateExtendedRegionStart  = 576
	xstateAVX512ZMMRegionStart = 1152
)

// AMD64XstateRead decodes a raw XSAVE area (as returned by
// PTRACE_GETREGSET(NT_X86_XSTATE)) into legacy, AVX and AVX-512
// components, following the legacy/header/extended layout in Intel's
// SDM Vol. 1 §13.1 and onward. If readLegacy is true the first 512
// bytes (the user_fpregs_struct-compatible legacy region) are also
// decoded into legacy.
func AMD64XstateRead(xstateargs []byte, readLegacy bool, legacy *proc.AMD64LegacyFPRegs) (avxState, avx512State bool, ymmSpace [256]byte, zmmSpace [512]byte, err error) {
	if xstateHeaderStart+xstateHeaderLen >= len(xstateargs) {
		return false, false, ymmSpace, zmmSpace, nil
	}
	if readLegacy {
		rdr := bytes.NewReader(xstateargs[:xstateHeaderStart])
		if err := binary.Read(rdr, binary.LittleEndian, legacy); err != nil {
			return false, false, ymmSpace, zmmSpace, err
		}
	}
	header := xstateargs[xstateHeaderStart : xstateHeaderStart+xstateHeaderLen]
	xstateBV := binary.LittleEndian.Uint64(header[0:8])
	xcompBV := binary.LittleEndian.Uint64(header[8:16])

	if xcompBV&(1<<63) != 0 {
		// compact format, not handled
		return false, false, ymmSpace, zmmSpace, nil
	}
	if xstateBV&(1<<2) == 0 {
		// AVX state component not present
		return false, false, ymmSpace, zmmSpace, nil
	}

	avxregion := xstateargs[xstateExtendedRegionStart:]
	copy(ymmSpace[:], avxregion[:len(ymmSpace)])
	avxState = true

	if xstateBV&(1<<6) == 0 {
		// AVX-512 state component not present
		return avxState, false, ymmSpace, zmmSpace, nil
	}

	zmmregion := xstateargs[xstateAVX512ZMMRegionStart:]
	copy(zmmSpace[:], zmmregion[:len(zmmSpace)])
	avx512State = true

	return avxState, avx512State, ymmSpace, zmmSpace, nil
}
