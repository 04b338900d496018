package cmd

import (
	"github.com/lunixbochs/ropcorn/go/models"
)

// rawFlags select raw loading: when an architecture is forced, the file is
// mapped as one executable blob at -base instead of being parsed.
type rawFlags struct {
	arch, endian string
}

func (c *Cmd) setupRawFlags() *rawFlags {
	r := &rawFlags{}
	fs := c.Flags
	fs.StringVar(&r.arch, "arch", "", "force an architecture and load the file as raw code ('list' to show them)")
	fs.StringVar(&r.arch, "A", "", "force an architecture and load the file as raw code ('list' to show them)")
	fs.StringVar(&r.endian, "endian", "", "'big' or 'little' endian (raw mode only, defaults to the architecture's)")
	fs.Uint64Var(&c.Config.RawBase, "base", c.Config.RawBase, "base address of raw code")
	c.loadFlags = append(c.loadFlags, "arch", "A", "endian", "base")
	return r
}

func (r *rawFlags) apply(cfg *models.Config) error {
	if r.arch != "" {
		arch, endian, err := models.ParseArch(r.arch)
		if err != nil {
			return err
		}
		cfg.Arch, cfg.Endian = arch, endian
	}
	if r.endian != "" {
		endian, err := models.ParseEndian(r.endian)
		if err != nil {
			return err
		}
		cfg.Endian = endian
	}
	return nil
}
