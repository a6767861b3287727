package proc

// Module is a single shared object the Module Enumerator found either
// by walking the dynamic linker's rendezvous structure or, failing
// that, by scanning mapped memory regions.
type Module struct {
	Name        string
	BaseAddress Address
}

// BinaryInfo is the minimal seam this engine needs from a binary-info
// parser that lives outside this module's scope: the address of the
// dynamic linker's rendezvous structure, or zero if unavailable (a
// statically-linked binary, or one not yet far enough into startup).
type BinaryInfo interface {
	DebugPointer() Address
}

// MemoryReader is the read half of the Memory I/O component's contract
// with the rest of the engine. The Module Enumerator's rendezvous walk
// and the Session Controller's inspection API both consume it without
// depending on the native package's /proc/<pid>/mem implementation.
type MemoryReader interface {
	// ReadMemory reads len(buf) bytes from the debuggee's address space
	// starting at addr into buf, returning the number of bytes read.
	ReadMemory(buf []byte, addr Address) (int, error)
}

// MemoryWriter is the write half; breakpoint insertion/removal goes
// through it. Word writes via PTRACE_POKETEXT (Session.WriteWord) do
// not.
type MemoryWriter interface {
	WriteMemory(addr Address, buf []byte) (int, error)
}
