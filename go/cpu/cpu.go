package cpu

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

// ErrInvalid is returned for bytes that do not decode to an instruction.
// It is expected while scanning and never fatal.
var ErrInvalid = errors.New("invalid instruction")

// Flow classifies how an instruction transfers control.
type Flow uint8

const (
	FlowNone Flow = iota
	// conditional branch
	FlowCond
	// unconditional direct transfer (jmp/call/b/bl to an immediate target)
	FlowJump
	// gadget terminator: return, indirect transfer or system call
	FlowAnchor
)

func (f Flow) String() string {
	switch f {
	case FlowCond:
		return "cond"
	case FlowJump:
		return "jump"
	case FlowAnchor:
		return "anchor"
	default:
		return "none"
	}
}

type Ins struct {
	Len        int
	Flow       Flow
	Privileged bool
	Mnemonic   string
	OpStr      string
}

func (i *Ins) String() string {
	if i.OpStr == "" {
		return i.Mnemonic
	}
	return i.Mnemonic + " " + i.OpStr
}

// Decoder decodes one instruction at a time. Implementations are safe for
// concurrent use.
type Decoder interface {
	Decode(mem []byte, addr uint64) (*Ins, error)
	// longest encoding the architecture allows
	MaxLen() int
	// instruction alignment in bytes
	Align() int
}

func newIns(length int, flow Flow, priv bool, text string) *Ins {
	text = strings.ToLower(strings.TrimSpace(text))
	mnemonic, opstr, _ := strings.Cut(text, " ")
	return &Ins{
		Len:        length,
		Flow:       flow,
		Privileged: priv,
		Mnemonic:   mnemonic,
		OpStr:      strings.TrimSpace(opstr),
	}
}

func NewDecoder(arch models.Arch, endian models.Endian, flavor models.Flavor) (Decoder, error) {
	if endian == models.EndianUndef {
		endian = arch.DefaultEndian()
	}
	switch arch {
	case models.ArchX86:
		return NewX86(32, flavor), nil
	case models.ArchX86_64:
		return NewX86(64, flavor), nil
	case models.ArchARM:
		return NewARM(endian), nil
	case models.ArchARM64:
		if endian == models.EndianBig {
			return nil, errors.Wrap(models.ErrNotSupported, "big endian arm64")
		}
		return NewARM64(), nil
	case models.ArchMIPS, models.ArchMIPS64:
		return NewMIPS(arch, endian)
	}
	return nil, errors.Wrapf(models.ErrNotSupported, "no decoder for %s", arch)
}

// nameSet matches lowercase mnemonics.
type nameSet map[string]bool

func newNameSet(names ...string) nameSet {
	s := make(nameSet, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

func (s nameSet) Has(name string) bool {
	return s[strings.ToLower(name)]
}
