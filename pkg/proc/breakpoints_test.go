package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreakpointSet_insertGetRemove(t *testing.T) {
	bs := NewBreakpointSet()
	bp := bs.Insert(0x1000, 0xcc)
	assert.Equal(t, Address(0x1000), bp.Address)
	assert.Equal(t, byte(0xcc), bp.OriginalByte)

	got, ok := bs.Get(0x1000)
	assert.True(t, ok)
	assert.Same(t, bp, got)

	bs.Remove(0x1000)
	_, ok = bs.Get(0x1000)
	assert.False(t, ok)
}

func TestBreakpointSet_inRange(t *testing.T) {
	bs := NewBreakpointSet()
	bs.Insert(0x1000, 0xaa)
	bs.Insert(0x1005, 0xbb)
	bs.Insert(0x2000, 0xcc)

	inRange := bs.InRange(0x1000, 16)
	assert.Len(t, inRange, 2)

	addrs := bs.Addresses()
	assert.ElementsMatch(t, []Address{0x1000, 0x1005, 0x2000}, addrs)

	bs.Reset()
	assert.Equal(t, 0, bs.Len())
}
