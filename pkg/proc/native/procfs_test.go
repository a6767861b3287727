package native

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coredbg/coredbg/pkg/proc"
)

// TestParseStatLine_S6 checks that a comm field containing spaces and
// nested parentheses round-trips, recovered via the outer parenthesis
// pair rather than naive whitespace splitting.
func TestParseStatLine_S6(t *testing.T) {
	fields := "S 1 1 1 0 -1 4194304 0 0 0 0 0 0 0 0 0 0 20 0 1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0 0 0 0 0 0 0 0"
	line := "42 (weird (name) /x) " + fields

	rec, err := parseStatLine("/proc/42/stat", line)
	assert.NoError(t, err)
	assert.Equal(t, proc.ProcessId(42), rec.Pid)
	assert.Equal(t, "weird (name) /x", rec.Comm)
	assert.Equal(t, byte('S'), rec.State)
	assert.Equal(t, proc.ProcessId(1), rec.Ppid)
}

func TestParseStatLine_malformedMissingParens(t *testing.T) {
	_, err := parseStatLine("/proc/1/stat", "not a valid stat line")
	assert.Error(t, err)
	_, ok := err.(proc.MalformedProc)
	assert.True(t, ok)
}

func TestParseStatLine_shortRecordIsBestEffortPartial(t *testing.T) {
	rec, err := parseStatLine("/proc/7/stat", "7 (sh) S 1 1")
	assert.Error(t, err)
	mp, ok := err.(proc.MalformedProc)
	assert.True(t, ok)
	assert.Greater(t, mp.FieldCount, 0)

	// Best-effort partial record is still returned alongside the error.
	assert.Equal(t, proc.ProcessId(7), rec.Pid)
	assert.Equal(t, "sh", rec.Comm)
	assert.Equal(t, byte('S'), rec.State)
	assert.Equal(t, proc.ProcessId(1), rec.Ppid)
}

func TestParseStatLine_dashesAndSlashesInComm(t *testing.T) {
	line := "99 (my-weird/proc-name) R 2 2 2 0 -1 0 0 0 0 0 0 0 0 0 0 0 20 0 1 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 0 17 0 0 0 0 0 0 0 0 0 0 0 0 0"
	rec, err := parseStatLine("/proc/99/stat", line)
	assert.NoError(t, err)
	assert.Equal(t, "my-weird/proc-name", rec.Comm)
}
