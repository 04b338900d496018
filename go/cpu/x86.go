package cpu

import (
	"golang.org/x/arch/x86/x86asm"

	"github.com/lunixbochs/ropcorn/go/models"
)

// instructions that fault or trap outside ring 0
var x86Privileged = newNameSet(
	"hlt", "in", "out", "insb", "insw", "insd", "outsb", "outsw", "outsd",
	"cli", "sti", "clts", "lgdt", "lidt", "lldt", "ltr", "lmsw",
	"invd", "wbinvd", "invlpg", "rdmsr", "wrmsr", "swapgs", "sysret", "sysexit",
	"ud1", "ud2", "into", "int3", "int1",
)

type X86 struct {
	mode   int
	syntax func(inst x86asm.Inst, pc uint64, sym x86asm.SymLookup) string
}

func NewX86(bits int, flavor models.Flavor) *X86 {
	d := &X86{mode: bits, syntax: x86asm.IntelSyntax}
	if flavor == models.FlavorATT {
		d.syntax = x86asm.GNUSyntax
	}
	return d
}

func (d *X86) MaxLen() int { return 15 }
func (d *X86) Align() int  { return 1 }

func (d *X86) Decode(mem []byte, addr uint64) (ins *Ins, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins, err = nil, ErrInvalid
		}
	}()
	inst, err := x86asm.Decode(mem, d.mode)
	if err != nil || inst.Len == 0 {
		return nil, ErrInvalid
	}
	flow, priv := x86Flow(inst)
	return newIns(inst.Len, flow, priv, d.syntax(inst, addr, nil)), nil
}

func x86Flow(inst x86asm.Inst) (Flow, bool) {
	switch inst.Op {
	case x86asm.RET, x86asm.LRET, x86asm.IRET, x86asm.IRETD, x86asm.IRETQ,
		x86asm.SYSCALL, x86asm.SYSENTER:
		return FlowAnchor, false
	case x86asm.INT:
		if imm, ok := inst.Args[0].(x86asm.Imm); ok && imm == 0x80 {
			return FlowAnchor, false
		}
		// int3 and friends trap in user mode
		return FlowNone, true
	case x86asm.JMP, x86asm.CALL, x86asm.LJMP, x86asm.LCALL:
		switch inst.Args[0].(type) {
		case x86asm.Reg, x86asm.Mem:
			return FlowAnchor, false
		}
		return FlowJump, false
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JCXZ, x86asm.JE,
		x86asm.JECXZ, x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP, x86asm.JRCXZ,
		x86asm.JS, x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE:
		return FlowCond, false
	}
	return FlowNone, x86Privileged.Has(inst.Op.String())
}
