package native

import (
	"fmt"

	"github.com/coredbg/coredbg/pkg/proc"
)

// This file wires the remaining introspection surface onto the
// Session: process enumeration, CPU identification and the
// hexadecimal pointer-formatting convention.

// EnumerateProcesses runs enumerate_processes(): every numeric entry
// under /proc, with its comm, owning uid and resolved username.
func (s *Session) EnumerateProcesses() (map[proc.ProcessId]ProcessInfo, error) {
	return enumerateProcesses()
}

// ParentPid returns the ppid field of /proc/<pid>/stat, or
// proc.NoProcess if it cannot be read.
func (s *Session) ParentPid(pid proc.ProcessId) proc.ProcessId {
	return parentPid(pid)
}

// CPUType answers cpu_type(): the instruction-set identity this
// session's register bank is shaped for.
func (s *Session) CPUType() string {
	if s.arch == proc.Arch386 {
		return "x86"
	}
	return "x86-64"
}

// HasExtension answers has_extension(tag) for the {MMX, XMM, ...}
// instruction-set extensions. On 64-bit x86 every process has both MMX
// and SSE as a baseline part of the ABI, so this reports true for both
// unconditionally regardless of the bank's contents, rather than
// querying CPUID. On 32-bit, where that baseline doesn't hold, the
// answer is derived from the register acquisition this session
// already performed: MMX aliases the legacy x87 register file carried
// by FPREGS (always present once general registers were fetched), and
// XMM/SSE availability is exactly what the FPXREGS support bit cached
// during get_state already tells us, so no separate CPUID probe is
// needed.
func (s *Session) HasExtension(tag string, bank *proc.RegisterBank) bool {
	if s.arch != proc.Arch386 {
		switch tag {
		case "MMX", "XMM":
			return true
		default:
			return false
		}
	}
	if bank == nil {
		return false
	}
	switch tag {
	case "MMX":
		return bank.FPPresent
	case "XMM":
		return bank.FPXRegsSupported != nil && *bank.FPXRegsSupported
	default:
		return false
	}
}

// FormatPointer renders addr as lowercase hexadecimal, zero-padded to
// 8 digits on 32-bit or 16 digits on 64-bit.
func (s *Session) FormatPointer(addr proc.Address) string {
	width := 16
	if s.arch == proc.Arch386 {
		width = 8
	}
	return fmt.Sprintf("%0*x", width, uint64(addr))
}
