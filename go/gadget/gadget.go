package gadget

import (
	"strings"

	"github.com/lunixbochs/ropcorn/go/cpu"
	"github.com/lunixbochs/ropcorn/go/models"
)

// Span is one instruction of a gadget, Off bytes from its start.
type Span struct {
	Off, Len   int
	Mnemonic   string
	Text       string
	Flow       cpu.Flow
	Privileged bool
}

// Gadget is a run of instructions that lands exactly on an anchor.
type Gadget struct {
	Addr   uint64
	Size   int
	Ins    []Span
	Text   string
	Arch   models.Arch
	Flavor models.Flavor
}

// Anchor is the terminating instruction.
func (g *Gadget) Anchor() Span {
	return g.Ins[len(g.Ins)-1]
}

// Body is every instruction before the anchor.
func (g *Gadget) Body() []Span {
	return g.Ins[:len(g.Ins)-1]
}

func (g *Gadget) End() uint64 {
	return g.Addr + uint64(g.Size)
}

func (g *Gadget) String() string {
	return g.Text
}

func joinText(spans []Span) string {
	parts := make([]string, len(spans))
	for i, s := range spans {
		parts[i] = s.Text
	}
	return strings.Join(parts, "; ")
}
