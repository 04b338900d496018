package gadget

import (
	"github.com/lunixbochs/ropcorn/go/cpu"
	"github.com/lunixbochs/ropcorn/go/models"
)

// Policy rejects gadgets that are useless or harmful in a chain.
type Policy struct {
	Name   string
	Reject func(g *Gadget, cfg *models.Config) bool
}

var Policies = []Policy{
	{models.PolicyDegenerate, degenerate},
	{models.PolicyNops, nops},
	{models.PolicyPrivileged, privileged},
	{models.PolicyBranch, branch},
}

// a lone anchor
func degenerate(g *Gadget, cfg *models.Config) bool {
	return !cfg.All && len(g.Body()) == 0
}

// an anchor preceded only by nops
func nops(g *Gadget, cfg *models.Config) bool {
	body := g.Body()
	if len(body) == 0 {
		return false
	}
	for _, s := range body {
		if s.Mnemonic != "nop" {
			return false
		}
	}
	return true
}

func privileged(g *Gadget, cfg *models.Config) bool {
	for _, s := range g.Ins {
		if s.Privileged {
			return true
		}
	}
	return false
}

func branch(g *Gadget, cfg *models.Config) bool {
	for _, s := range g.Body() {
		if s.Flow == cpu.FlowCond {
			return true
		}
	}
	return false
}

// Rejected returns the first active policy that rejects g.
func Rejected(g *Gadget, cfg *models.Config) (string, bool) {
	for _, p := range Policies {
		if cfg.Policy(p.Name) && p.Reject(g, cfg) {
			return p.Name, true
		}
	}
	return "", false
}
