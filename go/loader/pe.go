package loader

import (
	"bytes"
	"debug/pe"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

var mzMagic = []byte{'M', 'Z'}

type PeLoader struct{}

var PE = &PeLoader{}

func (p *PeLoader) Name() string { return "PE" }

func (p *PeLoader) Match(raw []byte) bool {
	return bytes.Equal(getMagic(raw)[:2], mzMagic)
}

var peMachines = map[uint16]models.Arch{
	pe.IMAGE_FILE_MACHINE_I386:  models.ArchX86,
	pe.IMAGE_FILE_MACHINE_AMD64: models.ArchX86_64,
	pe.IMAGE_FILE_MACHINE_ARMNT: models.ArchARM,
	pe.IMAGE_FILE_MACHINE_ARM64: models.ArchARM64,
}

func (p *PeLoader) Load(raw []byte) (bin *models.Binary, err error) {
	if !p.Match(raw) {
		return nil, models.ErrUnrecognized
	}
	defer catchPanic(p.Name(), &err)
	file, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, malformed(p.Name(), err)
	}
	arch, ok := peMachines[file.Machine]
	if !ok {
		return nil, errors.Wrapf(models.ErrNotSupported, "PE: machine %#x", file.Machine)
	}
	var imageBase, entry uint64
	var dllChars uint16
	switch opt := file.OptionalHeader.(type) {
	case *pe.OptionalHeader32:
		imageBase = uint64(opt.ImageBase)
		entry = uint64(opt.AddressOfEntryPoint)
		dllChars = opt.DllCharacteristics
	case *pe.OptionalHeader64:
		imageBase = opt.ImageBase
		entry = uint64(opt.AddressOfEntryPoint)
		dllChars = opt.DllCharacteristics
	default:
		return nil, errors.Wrap(models.ErrNotSupported, "PE: object files have no optional header")
	}
	l := &LoaderBase{typ: models.TypePE, arch: arch, endian: models.EndianLittle, entry: imageBase + entry}
	bin = l.binary(raw)

	for _, sec := range file.Sections {
		addr := imageBase + uint64(sec.VirtualAddress)
		size := uint64(sec.VirtualSize)
		if size == 0 {
			size = uint64(sec.Size)
		}
		seg, err := mapSegment(p.Name(), raw, arch, addr, size, uint64(sec.Offset), uint64(sec.Size), peProt(sec.Characteristics))
		if err != nil {
			return nil, err
		}
		bin.Segments = append(bin.Segments, seg)
		bin.Sections = append(bin.Sections, models.Section{Name: sec.Name, Addr: addr, Size: size})
	}
	for _, sym := range file.Symbols {
		n := int(sym.SectionNumber)
		if sym.Name == "" || n <= 0 || n > len(file.Sections) {
			continue
		}
		addr := imageBase + uint64(file.Sections[n-1].VirtualAddress) + uint64(sym.Value)
		bin.Symbols = append(bin.Symbols, models.Symbol{Name: sym.Name, Addr: addr})
	}
	bin.Hardening = &models.Hardening{
		NX:  models.ToggleOf(dllChars&pe.IMAGE_DLLCHARACTERISTICS_NX_COMPAT != 0),
		PIE: models.ToggleOf(dllChars&pe.IMAGE_DLLCHARACTERISTICS_DYNAMIC_BASE != 0),
	}
	return bin, nil
}

func peProt(chars uint32) models.Prot {
	var prot models.Prot
	if chars&pe.IMAGE_SCN_MEM_READ != 0 {
		prot |= models.ProtRead
	}
	if chars&pe.IMAGE_SCN_MEM_WRITE != 0 {
		prot |= models.ProtWrite
	}
	if chars&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
		prot |= models.ProtExec
	}
	return prot
}
