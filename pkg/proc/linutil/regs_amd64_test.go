package linutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/arch/x86/x86asm"

	"github.com/coredbg/coredbg/pkg/proc"
)

func sampleRegs() *proc.AMD64GeneralRegisters {
	return &proc.AMD64GeneralRegisters{
		Rax: 0x1122334455667788,
		Rbx: 0x1,
		Rsp: 0x7ffeeffff000,
		R8:  0xabcdef,
	}
}

func TestGetAMD64Register_subRegisterMasking(t *testing.T) {
	r := sampleRegs()

	al, err := GetAMD64Register(r, int(x86asm.AL))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x88), al)

	ah, err := GetAMD64Register(r, int(x86asm.AH))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x77), ah)

	ax, err := GetAMD64Register(r, int(x86asm.AX))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x7788), ax)

	eax, err := GetAMD64Register(r, int(x86asm.EAX))
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x55667788), eax)

	rax, err := GetAMD64Register(r, int(x86asm.RAX))
	assert.NoError(t, err)
	assert.Equal(t, r.Rax, rax)
}

func TestGetAMD64Register_extendedRegisters(t *testing.T) {
	r := sampleRegs()
	v, err := GetAMD64Register(r, int(x86asm.R8))
	assert.NoError(t, err)
	assert.Equal(t, r.R8, v)
}

func TestGetAMD64Register_unknownRegisterRejected(t *testing.T) {
	r := sampleRegs()
	_, err := GetAMD64Register(r, int(x86asm.CR0))
	assert.ErrorIs(t, err, ErrUnknownRegister)
}
