package native

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coredbg/coredbg/pkg/proc"
)

func TestParseMapsLine_fileBackedRegion(t *testing.T) {
	line := "7f1234560000-7f1234580000 r-xp 00000000 fc:01 131649                     /usr/lib/x86_64-linux-gnu/libc.so.6"
	name, base, ok := parseMapsLine(line)
	assert.True(t, ok)
	assert.Equal(t, "/usr/lib/x86_64-linux-gnu/libc.so.6", name)
	assert.Equal(t, proc.Address(0x7f1234560000), base)
}

func TestParseMapsLine_specialRegionHasNoFilePath(t *testing.T) {
	line := "7ffee0000000-7ffee0021000 rw-p 00000000 00:00 0                          [stack]"
	name, _, ok := parseMapsLine(line)
	assert.True(t, ok)
	assert.Equal(t, "[stack]", name)
	assert.False(t, name[0] == '/')
}

func TestParseMapsLine_trulyAnonymousHasNoPathname(t *testing.T) {
	line := "7ffee0000000-7ffee0021000 rw-p 00000000 00:00 0 "
	_, _, ok := parseMapsLine(line)
	assert.False(t, ok)
}
