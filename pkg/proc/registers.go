package proc

// Arch distinguishes the two x86 register-set shapes this engine
// understands, per the Design Notes' "ad-hoc polymorphism over
// architecture": one variant-shaped RegisterBank instead of
// conditional compilation.
type Arch int

const (
	ArchAMD64 Arch = iota
	Arch386
)

func (a Arch) String() string {
	if a == Arch386 {
		return "386"
	}
	return "amd64"
}

// PointerSize returns 4 or 8 depending on Arch.
func (a Arch) PointerSize() int {
	if a == Arch386 {
		return 4
	}
	return 8
}

// AMD64GeneralRegisters mirrors the kernel's user_regs_struct for
// x86-64, the layout PTRACE_GETREGS/PTRACE_SETREGS read and write.
type AMD64GeneralRegisters struct {
	R15, R14, R13, R12      uint64
	Rbp, Rbx                uint64
	R11, R10, R9, R8        uint64
	Rax, Rcx, Rdx, Rsi, Rdi uint64
	OrigRax                uint64
	Rip                     uint64
	Cs                      uint64
	Eflags                  uint64
	Rsp                     uint64
	Ss                      uint64
	FsBase, GsBase          uint64
	Ds, Es, Fs, Gs          uint64
}

// I386GeneralRegisters mirrors the kernel's user_regs_struct for
// x86-32.
type I386GeneralRegisters struct {
	Ebx, Ecx, Edx, Esi, Edi, Ebp, Eax int32
	Xds, Xes, Xfs, Xgs                int32
	OrigEax                           int32
	Eip                               int32
	Xcs                               int32
	Eflags                            int32
	Esp                               int32
	Xss                               int32
}

// AMD64LegacyFPRegs mirrors user_fpregs_struct, which is also the
// first 512 bytes of an XSAVE area: x87 state plus SSE state.
type AMD64LegacyFPRegs struct {
	Cwd, Swd, Ftw, Fop uint16
	Rip, Rdp           uint64
	Mxcsr, MxcrMask    uint32
	StSpace            [32]uint32
	XmmSpace           [256]byte
	Padding            [24]uint32
}

// RegisterBank is the full register-set snapshot of a single thread:
// general registers, segment-derived bases, floating-point/SSE state,
// XSAVE extended state, and debug registers, each behind a presence
// flag cleared at the start of every acquisition (see get_state in
// proc/native).
type RegisterBank struct {
	Arch Arch

	GeneralPresent bool
	AMD64          AMD64GeneralRegisters
	I386           I386GeneralRegisters

	// SegmentBasesPresent is only ever set on 32-bit x86, where FS/GS
	// bases must be derived from the LDT rather than read directly.
	// On 64-bit the bases live in AMD64GeneralRegisters.FsBase/GsBase
	// and are always present alongside GeneralPresent.
	SegmentBasesPresent bool
	FSBase, GSBase      Address

	FPPresent bool
	FP        AMD64LegacyFPRegs

	// FPXRegsSupported caches whether PTRACE_GETFPXREGS works on this
	// kernel, so a failure is not retried on every subsequent call.
	FPXRegsSupported *bool

	XSavePresent bool
	XSaveArea    []byte
	AVXState     bool
	AVX512State  bool
	YMMSpace     [256]byte
	ZMMSpace     [512]byte

	DebugPresent bool
	// DebugRegs holds DR0-DR3 (breakpoint addresses), DR6 (status) at
	// index 6 and DR7 (control) at index 7. Indices 4 and 5 are
	// reserved by the architecture and always zero.
	DebugRegs [8]uint64
}

// NewRegisterBank returns a RegisterBank with every presence flag
// cleared, for the given architecture.
func NewRegisterBank(arch Arch) *RegisterBank {
	return &RegisterBank{Arch: arch}
}

// ClearPresence clears every presence flag. Step 1 of get_state().
func (b *RegisterBank) ClearPresence() {
	b.GeneralPresent = false
	b.SegmentBasesPresent = false
	b.FPPresent = false
	b.XSavePresent = false
	b.DebugPresent = false
}

// InstructionPointer returns RIP or EIP depending on Arch.
func (b *RegisterBank) InstructionPointer() Address {
	if b.Arch == Arch386 {
		return Address(uint32(b.I386.Eip))
	}
	return Address(b.AMD64.Rip)
}

// StackPointer returns RSP or ESP depending on Arch.
func (b *RegisterBank) StackPointer() Address {
	if b.Arch == Arch386 {
		return Address(uint32(b.I386.Esp))
	}
	return Address(b.AMD64.Rsp)
}

// FramePointer returns RBP or EBP depending on Arch.
func (b *RegisterBank) FramePointer() Address {
	if b.Arch == Arch386 {
		return Address(uint32(b.I386.Ebp))
	}
	return Address(b.AMD64.Rbp)
}

// FlagRegister returns RFLAGS/EFLAGS depending on Arch.
func (b *RegisterBank) FlagRegister() uint64 {
	if b.Arch == Arch386 {
		return uint64(uint32(b.I386.Eflags))
	}
	return b.AMD64.Eflags
}

// RegisterByName answers textual register-name queries for the handful
// of named registers a caller can reasonably ask for by role, without
// exposing a full register-listing API — that belongs to a
// disassembly/symbolization layer.
func (b *RegisterBank) RegisterByName(name string) (uint64, bool) {
	switch name {
	case "stack_pointer":
		return uint64(b.StackPointer()), true
	case "frame_pointer":
		return uint64(b.FramePointer()), true
	case "instruction_pointer":
		return uint64(b.InstructionPointer()), true
	case "flag_register":
		return b.FlagRegister(), true
	default:
		return 0, false
	}
}
