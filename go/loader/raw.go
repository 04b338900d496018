package loader

import (
	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

// LoadRaw skips format detection and maps the whole buffer as one r-x
// segment at base.
func LoadRaw(name string, raw []byte, arch models.Arch, endian models.Endian, base uint64) (*models.Binary, error) {
	if arch == models.ArchUndef {
		return nil, errors.Wrap(models.ErrBadConfig, "raw mode needs an architecture")
	}
	if align := uint64(arch.InsAlign()); base%align != 0 {
		return nil, errors.Wrapf(models.ErrBadConfig, "%#x: base not aligned to %d bytes for %s", base, align, arch)
	}
	if endian == models.EndianUndef {
		endian = arch.DefaultEndian()
	}
	l := &LoaderBase{
		typ:    models.TypeRaw,
		arch:   arch,
		endian: endian,
		entry:  base,
	}
	bin := l.binary(raw)
	bin.Filename = name
	seg, err := mapSegment("raw", raw, arch, base, uint64(len(raw)), 0, uint64(len(raw)), models.ProtRead|models.ProtExec)
	if err != nil {
		return nil, err
	}
	bin.Segments = []models.Segment{seg}
	return bin, nil
}
