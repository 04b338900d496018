package cpu

import (
	"golang.org/x/arch/arm/armasm"
	"golang.org/x/arch/arm64/arm64asm"

	"github.com/lunixbochs/ropcorn/go/models"
)

// armasm encodes the condition in the low four bits of conditional ops
const armCondAlways = 14

type ARM struct {
	bigEndian bool
}

func NewARM(endian models.Endian) *ARM {
	return &ARM{bigEndian: endian == models.EndianBig}
}

func (d *ARM) MaxLen() int { return 4 }
func (d *ARM) Align() int  { return 4 }

func (d *ARM) Decode(mem []byte, addr uint64) (ins *Ins, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins, err = nil, ErrInvalid
		}
	}()
	if len(mem) < 4 {
		return nil, ErrInvalid
	}
	word := []byte{mem[0], mem[1], mem[2], mem[3]}
	if d.bigEndian {
		word[0], word[1], word[2], word[3] = word[3], word[2], word[1], word[0]
	}
	inst, err := armasm.Decode(word, armasm.ModeARM)
	if err != nil {
		return nil, ErrInvalid
	}
	flow, priv := armFlow(inst)
	return newIns(4, flow, priv, armasm.GNUSyntax(inst)), nil
}

func armWritesPC(list armasm.Arg) bool {
	regs, ok := list.(armasm.RegList)
	return ok && regs&(1<<15) != 0
}

func armFlow(inst armasm.Inst) (Flow, bool) {
	always := inst.Op&15 == armCondAlways
	anchor := FlowCond
	if always {
		anchor = FlowAnchor
	}
	switch inst.Op &^ 15 {
	case armasm.BX_EQ, armasm.SVC_EQ:
		return anchor, false
	case armasm.BLX_EQ:
		if _, ok := inst.Args[0].(armasm.Reg); ok {
			return anchor, false
		}
		return FlowJump, false
	case armasm.POP_EQ:
		if armWritesPC(inst.Args[0]) {
			return anchor, false
		}
	case armasm.LDM_EQ:
		if armWritesPC(inst.Args[1]) {
			return anchor, false
		}
	case armasm.MOV_EQ:
		if reg, ok := inst.Args[0].(armasm.Reg); ok && reg == armasm.PC {
			return anchor, false
		}
	case armasm.B_EQ, armasm.BL_EQ:
		if always {
			return FlowJump, false
		}
		return FlowCond, false
	}
	return FlowNone, false
}

var arm64Privileged = newNameSet("hvc", "smc", "hlt", "brk", "udf", "dcps1", "dcps2", "dcps3")

type ARM64 struct{}

func NewARM64() *ARM64 { return &ARM64{} }

func (d *ARM64) MaxLen() int { return 4 }
func (d *ARM64) Align() int  { return 4 }

func (d *ARM64) Decode(mem []byte, addr uint64) (ins *Ins, err error) {
	defer func() {
		if r := recover(); r != nil {
			ins, err = nil, ErrInvalid
		}
	}()
	if len(mem) < 4 {
		return nil, ErrInvalid
	}
	inst, err := arm64asm.Decode(mem[:4])
	if err != nil {
		return nil, ErrInvalid
	}
	flow := FlowNone
	switch inst.Op {
	case arm64asm.RET, arm64asm.BR, arm64asm.BLR, arm64asm.ERET, arm64asm.SVC:
		flow = FlowAnchor
	case arm64asm.B:
		flow = FlowJump
		if _, ok := inst.Args[0].(arm64asm.Cond); ok {
			flow = FlowCond
		}
	case arm64asm.BL:
		flow = FlowJump
	case arm64asm.CBZ, arm64asm.CBNZ, arm64asm.TBZ, arm64asm.TBNZ:
		flow = FlowCond
	}
	return newIns(4, flow, arm64Privileged.Has(inst.Op.String()), arm64asm.GNUSyntax(inst)), nil
}
