package gadget

import (
	"os"
	"strings"

	"github.com/lunixbochs/ropcorn/go/cmd"
	rop "github.com/lunixbochs/ropcorn/go/gadget"
	"github.com/lunixbochs/ropcorn/go/models"
)

func NewGadgetCmd() *cmd.Cmd {
	c := cmd.NewCmd("gadget", "-d 8 -B 0a0d -f att /bin/ls")
	cfg := c.Config

	var bad, flavor, policy string
	var noFilter bool
	c.SetupFlags = func() error {
		fs := c.Flags
		fs.BoolVar(&cfg.All, "all", cfg.All, "print all gadgets, even duplicates")
		fs.BoolVar(&cfg.All, "a", cfg.All, "print all gadgets, even duplicates")
		fs.StringVar(&bad, "bad", "", "bad bytes in gadget addresses (hex, eg. 0a0d)")
		fs.StringVar(&bad, "B", "", "bad bytes in gadget addresses (hex, eg. 0a0d)")
		fs.IntVar(&cfg.Depth, "depth", cfg.Depth, "maximum instructions per gadget, anchor included (1-50)")
		fs.IntVar(&cfg.Depth, "d", cfg.Depth, "maximum instructions per gadget, anchor included (1-50)")
		fs.StringVar(&flavor, "flavor", cfg.Flavor.String(), "x86 syntax ('intel' or 'att')")
		fs.StringVar(&flavor, "f", cfg.Flavor.String(), "x86 syntax ('intel' or 'att')")
		fs.BoolVar(&noFilter, "no-filter", false, "keep degenerate, nop-only, privileged and branching gadgets")
		fs.BoolVar(&noFilter, "F", false, "keep degenerate, nop-only, privileged and branching gadgets")
		fs.BoolVar(&cfg.Symbolize, "syms", cfg.Symbolize, "annotate gadgets with the symbol covering them")
		fs.BoolVar(&cfg.Demangle, "demangle", cfg.Demangle, "demangle symbol names")
		fs.StringVar(&policy, "policy", "", "comma separated filter policies ("+strings.Join(models.PolicyNames(), ", ")+" or none)")
		return nil
	}
	c.ApplyFlags = func() error {
		var err error
		if cfg.Flavor, err = models.ParseFlavor(flavor); err != nil {
			return err
		}
		if bad != "" {
			if cfg.BadBytes, err = models.ParseBadBytes(bad); err != nil {
				return err
			}
		}
		if policy != "" {
			if cfg.Policies, err = models.ParsePolicies(policy); err != nil {
				return err
			}
		}
		if noFilter {
			cfg.Filter = false
		}
		return nil
	}
	c.RunBinary = func(bin *models.Binary) error {
		c.Printer.Banner("Looking gadgets, please wait...")
		gadgets, err := rop.Find(bin, cfg)
		if err != nil {
			return err
		}
		c.Printer.PrintGadgets(bin, gadgets)
		return nil
	}
	return c
}

func Main(args []string) {
	os.Exit(NewGadgetCmd().Run(args))
}

func init() { cmd.Register("gadget", "search ROP gadgets in a binary", Main) }
