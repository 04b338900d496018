package info

import (
	"os"

	"github.com/lunixbochs/ropcorn/go/cmd"
	"github.com/lunixbochs/ropcorn/go/models"
)

func NewInfoCmd() *cmd.Cmd {
	c := cmd.NewCmd("info", "-all -demangle /bin/ls")
	cfg := c.Config

	var segments, sections, syms, all bool
	c.SetupFlags = func() error {
		fs := c.Flags
		fs.BoolVar(&segments, "segments", false, "list loadable segments")
		fs.BoolVar(&sections, "sections", false, "list sections")
		fs.BoolVar(&syms, "syms", false, "list symbols")
		fs.BoolVar(&all, "all", false, "same as -segments -sections -syms")
		fs.BoolVar(&cfg.Demangle, "demangle", cfg.Demangle, "demangle C++ and Rust symbol names")
		return nil
	}
	c.RunBinary = func(bin *models.Binary) error {
		p := c.Printer
		p.PrintInfos(bin)
		if segments || all {
			p.Println()
			p.PrintSegments(bin)
		}
		if sections || all {
			p.Println()
			p.PrintSections(bin)
		}
		if syms || all {
			p.Println()
			p.PrintSymbols(bin)
		}
		return nil
	}
	return c
}

func Main(args []string) {
	os.Exit(NewInfoCmd().Run(args))
}

func init() { cmd.Register("info", "print file format, segments and hardening of a binary", Main) }
