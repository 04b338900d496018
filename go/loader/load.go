package loader

import (
	"os"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

// Formats is tried in order; the first format to recognize the file wins.
var Formats = []Format{
	Elf32,
	Elf64,
	PE,
	MachO32,
	MachO64,
}

// LoadFile reads path into memory once and loads it. When cfg.Arch is set
// the file is loaded in raw mode.
func LoadFile(path string, cfg *models.Config) (*models.Binary, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if stat.IsDir() {
		return nil, errors.Errorf("%s: file seems to be a directory", path)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error while reading binary file")
	}
	return Load(path, raw, cfg)
}

func Load(name string, raw []byte, cfg *models.Config) (*models.Binary, error) {
	log := cfg.Log().Named("loader")
	if cfg != nil && cfg.Arch != models.ArchUndef {
		log.Debug("raw mode", "arch", cfg.Arch, "endian", cfg.Endian, "base", cfg.RawBase)
		return LoadRaw(name, raw, cfg.Arch, cfg.Endian, cfg.RawBase)
	}
	for _, f := range Formats {
		log.Trace("trying format", "format", f.Name())
		bin, err := f.Load(raw)
		if errors.Is(err, models.ErrUnrecognized) {
			continue
		} else if err != nil {
			return nil, errors.Wrapf(err, "error in %s loader", f.Name())
		}
		if err := bin.Check(); err != nil {
			return nil, errors.Wrapf(err, "%s loader", f.Name())
		}
		bin.Filename = name
		bin.SortSymbols()
		log.Debug("loaded", "format", bin.Type, "arch", bin.Arch, "segments", len(bin.Segments),
			"sections", len(bin.Sections), "symbols", len(bin.Symbols))
		return bin, nil
	}
	return nil, errors.Wrap(models.ErrUnrecognized, "format not supported")
}
