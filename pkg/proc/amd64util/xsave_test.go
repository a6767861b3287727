package amd64util

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coredbg/coredbg/pkg/proc"
)

func makeXstateBuf(xstateBV uint64) []byte {
	buf := make([]byte, AMD64XstateMaxSize())
	for i := range buf {
		buf[i] = byte(i)
	}
	for i := 0; i < 8; i++ {
		buf[xstateHeaderStart+i] = byte(xstateBV >> (8 * i))
	}
	// xcompBV keeps the fill pattern (0x0f0e0d0c0b0a0908), whose bit 63
	// is clear: standard (non-compact) format.
	return buf
}

func TestAMD64XstateRead_tooShortBufferIsQuietlyEmpty(t *testing.T) {
	var legacy proc.AMD64LegacyFPRegs
	avx, avx512, _, _, err := AMD64XstateRead(make([]byte, 32), false, &legacy)
	assert.NoError(t, err)
	assert.False(t, avx)
	assert.False(t, avx512)
}

func TestAMD64XstateRead_noAVXComponentPresent(t *testing.T) {
	buf := makeXstateBuf(0)
	var legacy proc.AMD64LegacyFPRegs
	avx, avx512, _, _, err := AMD64XstateRead(buf, false, &legacy)
	assert.NoError(t, err)
	assert.False(t, avx)
	assert.False(t, avx512)
}

func TestAMD64XstateRead_avxOnly(t *testing.T) {
	buf := makeXstateBuf(1 << 2)
	var legacy proc.AMD64LegacyFPRegs
	avx, avx512, ymm, _, err := AMD64XstateRead(buf, false, &legacy)
	assert.NoError(t, err)
	assert.True(t, avx)
	assert.False(t, avx512)
	assert.Equal(t, buf[xstateExtendedRegionStart], ymm[0])
}

func TestAMD64XstateRead_avxAndAvx512(t *testing.T) {
	buf := makeXstateBuf(1<<2 | 1<<6)
	var legacy proc.AMD64LegacyFPRegs
	avx, avx512, ymm, zmm, err := AMD64XstateRead(buf, false, &legacy)
	assert.NoError(t, err)
	assert.True(t, avx)
	assert.True(t, avx512)
	assert.Equal(t, buf[xstateExtendedRegionStart], ymm[0])
	assert.Equal(t, buf[xstateAVX512ZMMRegionStart], zmm[0])
}

func TestAMD64XstateRead_compactFormatNotHandled(t *testing.T) {
	buf := makeXstateBuf(1 << 2)
	for i := 0; i < 8; i++ {
		buf[xstateHeaderStart+8+i] = 0 // clear all 8 bytes of xcompBV
	}
	buf[xstateHeaderStart+8+7] |= 0x80 // set bit 63 of xcompBV
	var legacy proc.AMD64LegacyFPRegs
	avx, avx512, _, _, err := AMD64XstateRead(buf, false, &legacy)
	assert.NoError(t, err)
	assert.False(t, avx)
	assert.False(t, avx512)
}

func TestAMD64XstateRead_decodesLegacyRegionWhenRequested(t *testing.T) {
	buf := makeXstateBuf(1 << 2)
	var legacy proc.AMD64LegacyFPRegs
	_, _, _, _, err := AMD64XstateRead(buf, true, &legacy)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0100), legacy.Cwd) // bytes 0,1 of the fill pattern, little-endian
}

func TestAMD64XstateMaxSize_isPositive(t *testing.T) {
	assert.Greater(t, AMD64XstateMaxSize(), 0)
}
