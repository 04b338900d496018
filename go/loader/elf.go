package loader

import (
	"bytes"
	"debug/elf"

	"github.com/pkg/errors"

	"github.com/lunixbochs/ropcorn/go/models"
)

var elfMagic = []byte{0x7f, 0x45, 0x4c, 0x46}

type ElfLoader struct {
	name  string
	class elf.Class
	typ   models.Type
}

var (
	Elf32 = &ElfLoader{"ELF32", elf.ELFCLASS32, models.TypeELF32}
	Elf64 = &ElfLoader{"ELF64", elf.ELFCLASS64, models.TypeELF64}
)

func (e *ElfLoader) Name() string { return e.name }

func (e *ElfLoader) Match(raw []byte) bool {
	return len(raw) > elf.EI_CLASS && bytes.Equal(getMagic(raw), elfMagic) && elf.Class(raw[elf.EI_CLASS]) == e.class
}

func elfArch(file *elf.File) (models.Arch, bool) {
	switch file.Machine {
	case elf.EM_386:
		return models.ArchX86, true
	case elf.EM_X86_64:
		return models.ArchX86_64, true
	case elf.EM_ARM:
		return models.ArchARM, true
	case elf.EM_AARCH64:
		return models.ArchARM64, true
	case elf.EM_MIPS, elf.EM_MIPS_RS3_LE:
		if file.Class == elf.ELFCLASS64 {
			return models.ArchMIPS64, true
		}
		return models.ArchMIPS, true
	}
	return models.ArchUndef, false
}

func (e *ElfLoader) Load(raw []byte) (bin *models.Binary, err error) {
	if !e.Match(raw) {
		return nil, models.ErrUnrecognized
	}
	defer catchPanic(e.name, &err)
	file, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		return nil, malformed(e.name, err)
	}
	arch, ok := elfArch(file)
	if !ok {
		return nil, errors.Wrapf(models.ErrNotSupported, "%s: machine %s", e.name, file.Machine)
	}
	endian := models.EndianLittle
	if file.Data == elf.ELFDATA2MSB {
		endian = models.EndianBig
	}
	l := &LoaderBase{typ: e.typ, arch: arch, endian: endian, entry: file.Entry}
	bin = l.binary(raw)

	for _, prog := range file.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		seg, err := mapSegment(e.name, raw, arch, prog.Vaddr, prog.Memsz, prog.Off, prog.Filesz, elfProt(prog.Flags))
		if err != nil {
			return nil, err
		}
		bin.Segments = append(bin.Segments, seg)
	}
	for _, sec := range file.Sections {
		if sec.Type == elf.SHT_NULL {
			continue
		}
		bin.Sections = append(bin.Sections, models.Section{Name: sec.Name, Addr: sec.Addr, Size: sec.Size})
	}
	if bin.Symbols, err = elfSymbols(file); err != nil {
		return nil, malformed(e.name, err)
	}
	if bin.Hardening, err = elfHardening(file, bin.Symbols); err != nil {
		return nil, malformed(e.name, err)
	}
	return bin, nil
}

func elfProt(flags elf.ProgFlag) models.Prot {
	var prot models.Prot
	if flags&elf.PF_R != 0 {
		prot |= models.ProtRead
	}
	if flags&elf.PF_W != 0 {
		prot |= models.ProtWrite
	}
	if flags&elf.PF_X != 0 {
		prot |= models.ProtExec
	}
	return prot
}

func elfSymbols(file *elf.File) ([]models.Symbol, error) {
	var out []models.Symbol
	add := func(syms []elf.Symbol, dynamic bool) {
		for _, s := range syms {
			typ := elf.ST_TYPE(s.Info)
			if s.Name == "" || typ == elf.STT_SECTION || typ == elf.STT_FILE {
				continue
			}
			// unresolved imports carry no address
			if s.Section == elf.SHN_UNDEF && s.Value == 0 {
				continue
			}
			out = append(out, models.Symbol{Name: s.Name, Addr: s.Value, Size: s.Size, Dynamic: dynamic})
		}
	}
	syms, err := file.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, err
	}
	add(syms, false)
	dyn, err := file.DynamicSymbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, err
	}
	add(dyn, true)
	return out, nil
}

func elfHardening(file *elf.File, syms []models.Symbol) (*models.Hardening, error) {
	h := &models.Hardening{
		NX:  models.Disabled,
		PIE: models.ToggleOf(file.Type == elf.ET_DYN),
	}
	relro := false
	for _, prog := range file.Progs {
		switch prog.Type {
		case elf.PT_GNU_STACK:
			h.NX = models.ToggleOf(prog.Flags&elf.PF_X == 0)
		case elf.PT_GNU_RELRO:
			relro = true
		}
	}
	h.SSP = models.Disabled
	for _, s := range syms {
		if s.Name == "__stack_chk_fail" || s.Name == "__stack_chk_guard" || s.Name == "__intel_security_cookie" {
			h.SSP = models.Enabled
			break
		}
	}
	// imports were dropped from syms, look for the stack protector there too
	if h.SSP != models.Enabled {
		if imports, err := file.ImportedSymbols(); err == nil {
			for _, s := range imports {
				if s.Name == "__stack_chk_fail" {
					h.SSP = models.Enabled
					break
				}
			}
		}
	}

	rpath, err := file.DynString(elf.DT_RPATH)
	if err != nil {
		return nil, err
	}
	runpath, err := file.DynString(elf.DT_RUNPATH)
	if err != nil {
		return nil, err
	}
	h.RPath = models.ToggleOf(len(rpath) > 0)
	h.RunPath = models.ToggleOf(len(runpath) > 0)

	h.Relro = models.RelroNone
	if relro {
		h.Relro = models.RelroPartial
		bindNow, err := file.DynValue(elf.DT_BIND_NOW)
		if err != nil {
			return nil, err
		}
		flags, err := file.DynValue(elf.DT_FLAGS)
		if err != nil {
			return nil, err
		}
		flags1, err := file.DynValue(elf.DT_FLAGS_1)
		if err != nil {
			return nil, err
		}
		now := len(bindNow) > 0
		for _, f := range flags {
			now = now || f&uint64(elf.DF_BIND_NOW) != 0
		}
		for _, f := range flags1 {
			now = now || f&uint64(elf.DF_1_NOW) != 0
		}
		if now {
			h.Relro = models.RelroFull
		}
	}
	return h, nil
}
