package proc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sys/unix"
)

// TestResumeCode checks resume_code(STOPPED∧SIGSTOP) == 0,
// resume_code(SIGNALED∧S) == S, and resume_code(STOPPED∧S≠SIGSTOP) == S.
func TestResumeCode(t *testing.T) {
	stoppedSigstop := unix.WaitStatus(unix.SIGSTOP<<8 | 0x7f)
	assert.Equal(t, 0, ResumeCode(stoppedSigstop))

	stoppedSigtrap := unix.WaitStatus(unix.SIGTRAP<<8 | 0x7f)
	assert.Equal(t, int(unix.SIGTRAP), ResumeCode(stoppedSigtrap))

	signaledSigkill := unix.WaitStatus(unix.SIGKILL)
	assert.Equal(t, int(unix.SIGKILL), ResumeCode(signaledSigkill))

	exited := unix.WaitStatus(0)
	assert.Equal(t, 0, ResumeCode(exited))
}
